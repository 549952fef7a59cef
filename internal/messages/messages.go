package messages

import (
	"fmt"
	"unicode/utf8"
)

// ─── Social builders ─────────────────────────────────────────────────────────

func Comment(actor string) (string, string) {
	return CommentTitle, fmt.Sprintf(CommentBody, name(actor))
}

func Like(actor string) (string, string) {
	return LikeTitle, fmt.Sprintf(LikeBody, name(actor))
}

func Follow(actor string) (string, string) {
	return FollowTitle, fmt.Sprintf(FollowBody, name(actor))
}

// ─── Chat builders ───────────────────────────────────────────────────────────

func Message(actor, text string) (string, string) {
	return fmt.Sprintf(MessageTitle, name(actor)), fmt.Sprintf(MessageBody, preview(text))
}

func name(actor string) string {
	if actor == "" {
		return Someone
	}
	return actor
}

func preview(text string) string {
	if utf8.RuneCountInString(text) <= maxPreview {
		return text
	}
	r := []rune(text)
	return string(r[:maxPreview-1]) + "…"
}
