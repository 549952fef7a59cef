package messages

// ─── Social ──────────────────────────────────────────────────────────────────

const (
	CommentTitle = "New comment"
	CommentBody  = "%s commented on your post"

	LikeTitle = "New like"
	LikeBody  = "%s liked your post"

	FollowTitle = "New follower"
	FollowBody  = "%s started following you"
)

// ─── Chat ────────────────────────────────────────────────────────────────────

const (
	MessageTitle = "New message from %s"
	MessageBody  = "%s"
)

// Someone is used when the actor has no display name.
const Someone = "Someone"

// maxPreview bounds chat previews so the encrypted payload stays well under push size limits.
const maxPreview = 120
