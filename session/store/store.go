// Package store defines the durable key/value port the session manager
// persists credentials through, along with a file-backed implementation.
package store

// Storage keys for the persisted session. All four are written as a group on
// login/refresh and cleared as a group on logout; the medium itself offers no
// multi-key transaction.
const (
	KeyAccessToken  = "accessToken"
	KeyRefreshToken = "refreshToken"
	KeyExpiresIn    = "expiresIn"
	KeyUser         = "user"
)

// Store is a string-valued key/value store. Get returns the empty string for
// an absent key.
type Store interface {
	Get(key string) string
	Set(key, value string) error
	Delete(key string) error
	Clear() error
}
