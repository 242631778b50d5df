package cli

import (
	"bufio"
	"context"
	"fmt"
	"strings"
)

// printlnFn is a test seam for user-facing output. In tests, replace it with a stub.
var printlnFn = fmt.Println

// execIface defines the command surface the REPL needs to operate.
// The real App type satisfies this interface; tests can provide a lightweight stub.
type execIface interface {
	isLoggedIn() bool
	report(err error)

	Register(ctx context.Context) error
	Login(ctx context.Context) error
	Logout(ctx context.Context) error

	Status(ctx context.Context) error
	Sync(ctx context.Context) error
	Pending(ctx context.Context) error
	SetOffline(ctx context.Context, offline bool) error

	Profile(ctx context.Context) error
	Onboard(ctx context.Context) error
	Goals(ctx context.Context, args []string) error
	Premium(ctx context.Context) error

	Feed(ctx context.Context) error
	More(ctx context.Context) error
	Follow(ctx context.Context, args []string) error
	Post(ctx context.Context) error
	Like(ctx context.Context, args []string) error
	DeletePost(ctx context.Context, args []string) error
	Media(ctx context.Context, args []string) error

	Food(ctx context.Context, args []string) error
}

const (
	helpLoggedOut = "Available commands: register, login, status, offline, online, exit"
	helpLoggedIn  = "Available commands: feed, more, follow [secs], post, like <id>, delete <id>, media <id>,\n" +
		"  profile, onboard, goals [calories=N water=N steps=N], premium, food [words],\n" +
		"  status, sync, pending, offline, online, logout, exit"
)

// runREPL starts a simple read–eval–print loop for the FitSync CLI.
//
// It reads a line from the provided scanner, parses the first token as the
// command and the rest as its arguments, and dispatches to methods on 'a'.
// Commands that need an account print "Please login first" while signed out.
// Errors returned by handlers are passed to a.report. The loop exits on
// scanner EOF, when ctx is done, or when the user types "exit" or "quit".
func runREPL(ctx context.Context, a execIface, statusFn func() string, scanner *bufio.Scanner) {
	for {
		if ctx.Err() != nil {
			return
		}
		printlnFn(fmt.Sprintf("fs> %s > ", statusFn()))
		if !scanner.Scan() {
			return
		}
		parts := strings.Fields(scanner.Text())
		if len(parts) == 0 {
			continue
		}
		cmd, args := strings.ToLower(parts[0]), parts[1:]

		var err error
		switch cmd {
		case "help", "?":
			if a.isLoggedIn() {
				printlnFn(helpLoggedIn)
			} else {
				printlnFn(helpLoggedOut)
			}
			continue

		case "exit", "quit":
			printlnFn("Bye!")
			return

		case "register":
			err = a.Register(ctx)
		case "login":
			err = a.Login(ctx)
		case "status":
			err = a.Status(ctx)
		case "offline":
			err = a.SetOffline(ctx, true)
		case "online":
			err = a.SetOffline(ctx, false)

		default:
			if !a.isLoggedIn() {
				if _, known := gated[cmd]; known {
					printlnFn("Please login first")
				} else {
					printlnFn("Unknown command:", cmd)
				}
				continue
			}
			err = dispatch(ctx, a, cmd, args)
		}

		if err != nil {
			a.report(err)
		}
	}
}

var gated = map[string]struct{}{
	"logout": {}, "sync": {}, "pending": {},
	"profile": {}, "onboard": {}, "goals": {}, "premium": {},
	"feed": {}, "more": {}, "follow": {}, "post": {}, "like": {}, "delete": {}, "media": {},
	"food": {}, "me": {}, "f": {}, "m": {},
}

func dispatch(ctx context.Context, a execIface, cmd string, args []string) error {
	switch cmd {
	case "logout":
		return a.Logout(ctx)
	case "sync":
		return a.Sync(ctx)
	case "pending":
		return a.Pending(ctx)
	case "profile", "me":
		return a.Profile(ctx)
	case "onboard":
		return a.Onboard(ctx)
	case "goals":
		return a.Goals(ctx, args)
	case "premium":
		return a.Premium(ctx)
	case "feed", "f":
		return a.Feed(ctx)
	case "more", "m":
		return a.More(ctx)
	case "follow":
		return a.Follow(ctx, args)
	case "post":
		return a.Post(ctx)
	case "like":
		return a.Like(ctx, args)
	case "delete":
		return a.DeletePost(ctx, args)
	case "media":
		return a.Media(ctx, args)
	case "food":
		return a.Food(ctx, args)
	default:
		printlnFn("Unknown command:", cmd)
		return nil
	}
}
