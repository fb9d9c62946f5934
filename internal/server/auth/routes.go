package auth

import (
	"net/http"
	"strings"
)

// Classification says which credential a route requires.
type Classification int

const (
	// Public routes need no credential.
	Public Classification = iota + 1
	// AuthenticatedAny routes need a valid token for any user.
	AuthenticatedAny
	// AuthenticatedSameUser routes need a valid token whose subject equals
	// the first path segment.
	AuthenticatedSameUser
)

func (c Classification) String() string {
	switch c {
	case Public:
		return "PUBLIC"
	case AuthenticatedAny:
		return "AUTHENTICATED_ANY"
	case AuthenticatedSameUser:
		return "AUTHENTICATED_SAME_USER"
	default:
		return "UNKNOWN"
	}
}

// Segments splits a path below the users collection root into its
// non-empty segments. "", "/" and "//" all yield no segments.
func Segments(path string) []string {
	parts := strings.Split(path, "/")
	segments := parts[:0]
	for _, p := range parts {
		if p != "" {
			segments = append(segments, p)
		}
	}
	return segments
}

// Classify maps a method and the segments below /users to the credential
// the route requires. It never looks at anything but its arguments.
//
//	POST /users                            PUBLIC
//	POST /users/{email}/verifications      PUBLIC
//	GET  /users/{email}/public-keys/{kid}  AUTHENTICATED_ANY
//	anything else                          AUTHENTICATED_SAME_USER
func Classify(method string, segments []string) Classification {
	switch {
	case method == http.MethodPost && len(segments) == 0:
		return Public
	case method == http.MethodPost && len(segments) == 2 && segments[1] == "verifications":
		return Public
	case method == http.MethodGet && len(segments) == 3 && segments[1] == "public-keys":
		return AuthenticatedAny
	default:
		return AuthenticatedSameUser
	}
}

// TargetUser returns the email a same-user route is addressed to.
func TargetUser(segments []string) (string, bool) {
	if len(segments) == 0 {
		return "", false
	}
	return segments[0], true
}
