package service

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"connectly/internal/model"
	"connectly/internal/repository"
)

// populatePosts expands post authors and comment users to {id, name} with a
// single lookup. References to deleted users are left nil.
func populatePosts(ctx context.Context, users repository.UserRepository, posts []*model.Post) error {
	seen := make(map[primitive.ObjectID]bool)
	var ids []primitive.ObjectID
	add := func(id primitive.ObjectID) {
		if !id.IsZero() && !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	for _, p := range posts {
		add(p.AuthorID)
		for _, c := range p.Comments {
			add(c.UserID)
		}
	}
	if len(ids) == 0 {
		return nil
	}

	refs, err := users.GetRefs(ctx, ids)
	if err != nil {
		return fmt.Errorf("resolve post users: %w", err)
	}

	for _, p := range posts {
		if ref, ok := refs[p.AuthorID]; ok {
			p.Author = &ref
		}
		attachCommentUsers(p.Comments, refs)
	}
	return nil
}

func populateSlice(ctx context.Context, users repository.UserRepository, posts []model.Post) error {
	ptrs := make([]*model.Post, len(posts))
	for i := range posts {
		ptrs[i] = &posts[i]
	}
	return populatePosts(ctx, users, ptrs)
}

func populateComments(ctx context.Context, users repository.UserRepository, comments []model.Comment) error {
	return populatePosts(ctx, users, []*model.Post{{Comments: comments}})
}

func attachCommentUsers(comments []model.Comment, refs map[primitive.ObjectID]model.UserRef) {
	for i := range comments {
		if ref, ok := refs[comments[i].UserID]; ok {
			comments[i].User = &ref
		}
	}
}
