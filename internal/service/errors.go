package service

import (
	"net/http"

	"github.com/barboraplasovska/StudyBuddies-sub000/pkg/util/errorutil"
)

var (
	ErrEmailTaken          = errorutil.NewSentinel("EMAIL_TAKEN", "This email is already registered.", http.StatusConflict, "email unique key")
	ErrInvalidLogin        = errorutil.NewSentinel("INVALID_LOGIN", "Invalid email or password.", http.StatusUnauthorized, "unknown email or wrong password")
	ErrAccountNotVerified  = errorutil.NewSentinel("ACCOUNT_NOT_VERIFIED", "This account is not verified.", http.StatusForbidden, "login before verification")
	ErrInvalidVerification = errorutil.NewSentinel("INVALID_VERIFICATION_CODE", "Invalid verification code.", http.StatusBadRequest, "no account holds this code")
	ErrWrongPassword       = errorutil.NewSentinel("WRONG_PASSWORD", "Current password is incorrect.", http.StatusForbidden, "current password mismatch")
	ErrUserNotFound        = errorutil.NewSentinel("USER_NOT_FOUND", "User not found.", http.StatusNotFound, "no such user")
	ErrGroupNotFound       = errorutil.NewSentinel("GROUP_NOT_FOUND", "Group not found.", http.StatusNotFound, "no such group")
	ErrParentNotFound      = errorutil.NewSentinel("PARENT_GROUP_NOT_FOUND", "Parent group not found.", http.StatusNotFound, "no such parent group")
	ErrEventNotFound       = errorutil.NewSentinel("EVENT_NOT_FOUND", "Event not found.", http.StatusNotFound, "no such event")
)
