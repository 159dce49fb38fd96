package moderation

import (
	"lilypad/internal/models"
	"lilypad/internal/utils"
)

// CanWrite checks whether a user may post to a site. The comment API always
// requires an account (every comment row has an author), so a nil user is
// rejected regardless of the site's require_auth setting; that flag is for
// the embeddable widget to decide when to prompt for login.
func CanWrite(user *models.User, site *models.Site) error {
	if user == nil {
		return utils.NewUnauthorizedError("authentication required")
	}
	if user.IsBanned {
		return utils.NewAppError(utils.ErrForbidden, "Account is suspended", nil)
	}
	return nil
}
