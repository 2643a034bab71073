package feed

import (
	"encoding/json"
)

// Record tags used by the feed's normalized JSON.
const (
	TypeUpdate       = "com.linkedin.voyager.feed.render.UpdateV2"
	TypeSocialCounts = "com.linkedin.voyager.feed.shared.SocialActivityCounts"
)

// UnknownAuthor is the sentinel used when an update has an actor without a name.
const UnknownAuthor = "Unknown"

type Kind int

const (
	KindIgnored Kind = iota
	KindUpdate
	KindSocialCounts
)

func (k Kind) String() string {
	switch k {
	case KindUpdate:
		return "update"
	case KindSocialCounts:
		return "social-counts"
	default:
		return "ignored"
	}
}

// Item is the typed form of one record from the feed's "included" list.
// Every record keeps its identifiers and permalink because update records
// resolve their links through sibling records of any type.
type Item struct {
	Kind      Kind
	Type      string
	URN       string
	EntityURN string
	Permalink string

	Update *Update
	Counts *SocialCounts
}

// Update holds the fields of an update record the normalizer cares about.
type Update struct {
	Author          string
	AuthorDefaulted bool
	Text            string
	ShareURN        string
	SocialDetail    string
}

type SocialCounts struct {
	Likes    int
	Comments int
}

type rawObject map[string]json.RawMessage

// DecodeItems converts raw records into Items. Each field is decoded on its
// own, so a wrong-typed field only loses that field. Records that are not JSON
// objects become KindIgnored.
func DecodeItems(raw []json.RawMessage) []Item {
	items := make([]Item, 0, len(raw))
	for _, r := range raw {
		items = append(items, decodeItem(r))
	}
	return items
}

func decodeItem(r json.RawMessage) Item {
	var obj rawObject
	if err := json.Unmarshal(r, &obj); err != nil || obj == nil {
		return Item{Kind: KindIgnored}
	}

	item := Item{
		Type:      obj.str("$type"),
		URN:       obj.str("urn"),
		EntityURN: obj.str("entityUrn"),
		Permalink: obj.str("permalink"),
	}

	switch item.Type {
	case TypeUpdate:
		item.Kind = KindUpdate
		item.Update = decodeUpdate(obj)
	case TypeSocialCounts:
		item.Kind = KindSocialCounts
		item.Counts = &SocialCounts{
			Likes:    obj.num("numLikes"),
			Comments: obj.num("numComments"),
		}
	default:
		item.Kind = KindIgnored
	}
	return item
}

func decodeUpdate(obj rawObject) *Update {
	u := &Update{
		ShareURN:     obj.object("updateMetadata").str("shareUrn"),
		SocialDetail: obj.str("*socialDetail"),
	}

	// An actor with no readable name still marks the post as authored.
	if actor := obj.object("actor"); len(actor) > 0 {
		name := actor.object("name")
		if text, ok := name.lookupStr("text"); ok {
			u.Author = text
		} else {
			u.Author = UnknownAuthor
			u.AuthorDefaulted = true
		}
	}

	if commentary := obj.object("commentary"); len(commentary) > 0 {
		u.Text = commentary.object("text").str("text")
	}
	return u
}

func (o rawObject) str(key string) string {
	s, _ := o.lookupStr(key)
	return s
}

func (o rawObject) lookupStr(key string) (string, bool) {
	raw, ok := o[key]
	if !ok {
		return "", false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", false
	}
	return s, true
}

func (o rawObject) num(key string) int {
	raw, ok := o[key]
	if !ok {
		return 0
	}
	var n int
	if err := json.Unmarshal(raw, &n); err != nil {
		return 0
	}
	return n
}

func (o rawObject) object(key string) rawObject {
	raw, ok := o[key]
	if !ok {
		return nil
	}
	var nested rawObject
	if err := json.Unmarshal(raw, &nested); err != nil {
		return nil
	}
	return nested
}
