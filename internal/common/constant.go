package common

// AuthorizationHeaderName carries "Bearer <access token>" on requests.
const AuthorizationHeaderName = "Authorization"

// BearerPrefix is the scheme prefix of the Authorization header value.
const BearerPrefix = "Bearer "
