package notice

import "time"

// Medium values documented by the podping protocol. The set is advisory;
// decode preserves whatever the payload carries.
const (
	MediumPodcast    = "podcast"
	MediumMusic      = "music"
	MediumVideo      = "video"
	MediumFilm       = "film"
	MediumAudiobook  = "audiobook"
	MediumNewsletter = "newsletter"
	MediumBlog       = "blog"
)

// Reason values documented by the podping protocol.
const (
	ReasonUpdate  = "update"
	ReasonLive    = "live"
	ReasonLiveEnd = "liveEnd"
)

// Notification is one decoded content-update notice. URLs is never empty;
// operations without URLs are dropped during decode.
type Notification struct {
	URLs      []string
	Timestamp time.Time
	Account   string
	Medium    string
	Reason    string
	TrxID     string
	BlockNum  uint64
	Version   string
}
