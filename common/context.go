package common

type contextKey string

// AuthInfoKey stores the validated session claims on the request context.
const AuthInfoKey contextKey = "authInfo"
