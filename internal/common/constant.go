// Package common contains shared constants and sentinel errors used across
// imagey-cloud server components.
package common

// TokenCookieName is the cookie that carries the bearer token.
const TokenCookieName = "token"

// TokenIssuer is the fixed issuer claim of every token minted by the server.
const TokenIssuer = "https://imagey.cloud"

// InitialKid is the key identifier of the first key in every key space.
const InitialKid = "0"
