package players

import "errors"

var (
	ErrUsernameRequired = errors.New("username is required")
	ErrUsernameTooLong  = errors.New("username is too long")
	ErrPlayerNotFound   = errors.New("player not found")
)
