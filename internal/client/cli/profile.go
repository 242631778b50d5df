package cli

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/dmitrijs2005/fitsync/internal/client/services"
	"github.com/dmitrijs2005/fitsync/internal/domain"
)

func (a *App) Profile(ctx context.Context) error {
	p, err := a.profile.Get(ctx)
	if errors.Is(err, services.ErrNoProfile) {
		a.printf("No profile yet. Type 'onboard' to set one up.\n")
		return nil
	}
	if err != nil {
		return err
	}
	renderProfile(a.out, p)
	return nil
}

// Onboard asks for a display name and daily goals and completes onboarding.
func (a *App) Onboard(ctx context.Context) error {
	name, err := getSimpleText(a.reader, "Display name", a.out)
	if err != nil {
		return err
	}
	goals, err := a.askGoals(a.currentGoals(ctx))
	if err != nil {
		return err
	}
	res, err := a.profile.CompleteOnboarding(ctx, name, goals)
	if err != nil {
		return err
	}
	renderWrite(a.out, res)
	return nil
}

func (a *App) askGoals(g domain.Goals) (domain.Goals, error) {
	var err error
	if g.Calories, err = GetInt(a.reader, "Daily calories", g.Calories, a.out); err != nil {
		return g, err
	}
	if g.WaterMl, err = GetInt(a.reader, "Daily water (ml)", g.WaterMl, a.out); err != nil {
		return g, err
	}
	if g.Steps, err = GetInt(a.reader, "Daily steps", g.Steps, a.out); err != nil {
		return g, err
	}
	return g, nil
}

func (a *App) currentGoals(ctx context.Context) domain.Goals {
	if p, err := a.profile.Get(ctx); err == nil {
		return p.User.Goals
	}
	return domain.Goals{Calories: domain.DefaultCalorieGoal, WaterMl: domain.DefaultWaterGoalMl, Steps: domain.DefaultStepGoal}
}

// Goals updates daily goals. Without arguments it prompts; otherwise it
// takes calories=, water= and steps= pairs.
func (a *App) Goals(ctx context.Context, args []string) error {
	g := a.currentGoals(ctx)
	var err error
	if len(args) == 0 {
		g, err = a.askGoals(g)
	} else {
		g, err = parseGoals(g, args)
	}
	if err != nil {
		return err
	}
	res, err := a.profile.UpdateGoals(ctx, g)
	if err != nil {
		return err
	}
	renderWrite(a.out, res)
	return nil
}

func parseGoals(g domain.Goals, args []string) (domain.Goals, error) {
	for _, arg := range args {
		k, v, ok := strings.Cut(arg, "=")
		if !ok {
			return g, fmt.Errorf("expected name=value, got %q", arg)
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return g, fmt.Errorf("%s: %q is not a number", k, v)
		}
		switch strings.ToLower(k) {
		case "calories", "kcal":
			g.Calories = n
		case "water":
			g.WaterMl = n
		case "steps":
			g.Steps = n
		default:
			return g, fmt.Errorf("unknown goal %q (calories, water, steps)", k)
		}
	}
	return g, nil
}

func (a *App) Premium(ctx context.Context) error {
	res, err := a.profile.ActivatePremium(ctx)
	if err != nil {
		return err
	}
	renderWrite(a.out, res)
	return nil
}
