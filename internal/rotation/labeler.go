package rotation

import (
	"context"
	"fmt"

	"forum-warden/internal/platform"
)

// TagLabeler applies the featured label by editing a post's applied tag set
// through the platform client.
type TagLabeler struct {
	client  platform.Client
	tagName string
}

func NewTagLabeler(client platform.Client, tagName string) *TagLabeler {
	return &TagLabeler{client: client, tagName: tagName}
}

// AddLabel adds the featured tag to the post if the parent forum offers it.
func (l *TagLabeler) AddLabel(ctx context.Context, postID string) error {
	post, tag, err := l.resolve(ctx, postID)
	if err != nil {
		return err
	}
	if tag == nil {
		return nil
	}

	for _, applied := range post.AppliedTags {
		if applied == tag.ID {
			return nil
		}
	}

	newTags := append(append([]string{}, post.AppliedTags...), tag.ID)
	return l.client.EditChannel(ctx, postID, platform.ChannelEdit{AppliedTags: &newTags})
}

// RemoveLabel removes the featured tag from the post if present.
func (l *TagLabeler) RemoveLabel(ctx context.Context, postID string) error {
	post, tag, err := l.resolve(ctx, postID)
	if err != nil {
		return err
	}
	if tag == nil {
		return nil
	}

	newTags := make([]string, 0, len(post.AppliedTags))
	found := false
	for _, applied := range post.AppliedTags {
		if applied == tag.ID {
			found = true
			continue
		}
		newTags = append(newTags, applied)
	}
	if !found {
		return nil
	}

	return l.client.EditChannel(ctx, postID, platform.ChannelEdit{AppliedTags: &newTags})
}

// resolve fetches the post and locates the featured tag among the parent
// forum's available tags. A nil tag means the forum does not offer it.
func (l *TagLabeler) resolve(ctx context.Context, postID string) (*platform.Channel, *platform.Tag, error) {
	post, err := l.client.FetchChannel(ctx, postID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to fetch post %s: %w", postID, err)
	}
	if post.Type != platform.ChannelTypeForumPost {
		return nil, nil, fmt.Errorf("channel %s is not a forum post", postID)
	}

	forum, err := l.client.FetchChannel(ctx, post.ParentID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to fetch parent forum %s: %w", post.ParentID, err)
	}

	for i := range forum.AvailableTags {
		if forum.AvailableTags[i].Name == l.tagName {
			return post, &forum.AvailableTags[i], nil
		}
	}
	return post, nil, nil
}
