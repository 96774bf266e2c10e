package apperrors

var (
	ErrInvalidToken        = Authentication("invalid or expired token")
	ErrMissingToken        = Authentication("missing auth token")
	ErrInvalidCredentials  = Authentication("invalid email or password")
	ErrUserInactive        = Authentication("user is inactive")
	ErrUserNotFound        = NotFound("user not found")
	ErrChannelNotFound     = NotFound("channel not found")
	ErrMessageNotFound     = NotFound("message not found")
	ErrEmptyMessage        = Validation("message text cannot be empty")
	ErrNotChannelMember    = Authorization("you are not a member of this channel")
	ErrNoticeOwnerOnly     = Authorization("only the owner can post to notice channels")
	ErrNotMessageAuthor    = Authorization("only the author can edit this message")
	ErrNotCheckedIn        = Precondition("must be checked in")
	ErrAlreadyCheckedIn    = Conflict("already checked in")
	ErrPrivateChannelTaken = Conflict("a private channel already exists for these members")
)

// Forbidden builds the AuthorizationError returned when role checks fail.
func Forbidden(action string) error {
	return Authorization("you are not allowed to " + action)
}
