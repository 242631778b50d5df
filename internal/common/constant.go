package common

// AccessTokenHeaderName is the gRPC metadata key carrying the access token.
const AccessTokenHeaderName = "access_token"

// Collection names shared by client and server.
const (
	CollectionUsers     = "users"
	CollectionPosts     = "posts"
	CollectionNutrition = "nutrition"
)
