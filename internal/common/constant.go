package common

// AuthorizationHeaderName carries the bearer token on HTTP requests and, in
// lower case, in gRPC metadata.
const AuthorizationHeaderName = "Authorization"

// BearerScheme is the only authorization scheme accepted by the guards.
const BearerScheme = "Bearer"
