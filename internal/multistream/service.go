package multistream

// Service identifies a streaming platform with a known ingest endpoint.
// ServiceCustom carries no template; its destinations supply a full URL as
// the stream key.
type Service int

const (
	ServiceTwitch Service = iota
	ServiceYouTube
	ServiceFacebook
	ServiceKick
	ServiceTikTok
	ServiceInstagram
	ServiceX
	ServiceCustom
)

func (s Service) String() string {
	switch s {
	case ServiceTwitch:
		return "twitch"
	case ServiceYouTube:
		return "youtube"
	case ServiceFacebook:
		return "facebook"
	case ServiceKick:
		return "kick"
	case ServiceTikTok:
		return "tiktok"
	case ServiceInstagram:
		return "instagram"
	case ServiceX:
		return "x"
	case ServiceCustom:
		return "custom"
	default:
		return "unknown"
	}
}

func (s Service) valid() bool {
	return s >= ServiceTwitch && s <= ServiceCustom
}

// IngestURL returns the service's ingest base URL. TikTok uses a dedicated
// endpoint for vertical streams; every other service ignores the
// orientation. An unclassified orientation selects the horizontal endpoint.
func (s Service) IngestURL(orientation Orientation) string {
	switch s {
	case ServiceTwitch:
		return "rtmp://live.twitch.tv/app"
	case ServiceYouTube:
		return "rtmp://a.rtmp.youtube.com/live2"
	case ServiceFacebook:
		return "rtmps://live-api-s.facebook.com:443/rtmp"
	case ServiceKick:
		return "rtmp://stream.kick.com/app"
	case ServiceTikTok:
		if orientation == OrientationVertical {
			return "rtmp://live.tiktok.com/live"
		}
		return "rtmp://live.tiktok.com/live/horizontal"
	case ServiceInstagram:
		return "rtmps://live-upload.instagram.com:443/rtmp"
	case ServiceX:
		return "rtmp://ingest.pscp.tv:80/x"
	default:
		return ""
	}
}
