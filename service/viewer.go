package service

import (
	"context"

	"feed/model"
)

type userSaver interface {
	SaveUser(ctx context.Context, user *model.User) error
}

// saveViewer upserts the authenticated viewer's user row from the token
// claims. Every authenticated write calls it, so anyone who has acted has
// a profile and an (empty) timeline.
func saveViewer(ctx context.Context, users userSaver, authUser model.AuthUser) (model.User, error) {
	user := model.User{ID: authUser.ID, Name: authUser.Name, Image: authUser.Image}
	return user, users.SaveUser(ctx, &user)
}
