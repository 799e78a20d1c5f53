package classify

import (
	"fmt"
	"regexp"
	"strings"

	ua "github.com/mileusna/useragent"
)

type Platform string

const (
	PlatformIOS     Platform = "ios"
	PlatformAndroid Platform = "android"
	PlatformOther   Platform = "other"
)

// Signature identifies one in-app browser.
type Signature struct {
	App     string
	Pattern *regexp.Regexp
}

const (
	DeviceDesktop = "desktop"
	DeviceMobile  = "mobile"
	DeviceTablet  = "tablet"
	DeviceBot     = "bot"
	DeviceUnknown = "unknown"
)

// BrowserOther replaces browser names outside the parser's known set, so
// the value is safe as a metrics label.
const BrowserOther = "other"

// Client is the classification result for a single request.
type Client struct {
	Platform Platform
	InApp    bool
	// App is the name of the matched signature, empty when InApp is false.
	App     string
	Browser string
	Device  string
	// Bot marks crawlers such as link-preview fetchers. An in-app signature
	// match always clears it.
	Bot bool
}

func (c Client) IsIOS() bool     { return c.Platform == PlatformIOS }
func (c Client) IsAndroid() bool { return c.Platform == PlatformAndroid }

var (
	// The parser misses iPod and model tokens such as "iPhone15,2" that
	// app webviews send without the usual "(iPhone; CPU iPhone OS" prefix.
	iosFallback  = regexp.MustCompile(`iPad|iPhone|iPod`)
	windowsPhone = regexp.MustCompile(`Windows Phone`)
)

var knownBrowsers = map[string]bool{
	ua.Opera:               true,
	ua.OperaMini:           true,
	ua.OperaTouch:          true,
	ua.Chrome:              true,
	ua.HeadlessChrome:      true,
	ua.Firefox:             true,
	ua.InternetExplorer:    true,
	ua.Safari:              true,
	ua.Edge:                true,
	ua.Vivaldi:             true,
	ua.SamsungBrowser:      true,
	"Android browser":      true,
	ua.GoogleAdsBot:        true,
	ua.Googlebot:           true,
	ua.Twitterbot:          true,
	ua.FacebookExternalHit: true,
	ua.Applebot:            true,
	ua.Bingbot:             true,
	ua.YandexBot:           true,
	ua.YandexAdNet:         true,
	ua.FacebookApp:         true,
	ua.InstagramApp:        true,
	ua.TiktokApp:           true,
}

// defaultSignatures is ordered: more specific apps come before the apps whose
// tokens they also carry (Messenger before Facebook, Threads before Instagram).
var defaultSignatures = []struct{ app, pattern string }{
	{"messenger", `FBAN/Messenger|MessengerForiOS|MessengerLite|Orca-Android`},
	{"threads", `Barcelona \d`},
	{"instagram", `Instagram`},
	{"facebook", `FBAN|FBAV|FB_IAB|FBIOS|FB4A`},
	{"tiktok", `musical_ly|BytedanceWebview|Bytedance|TikTok|ByteLocale`},
	{"twitter", `Twitter for iP|TwitterAndroid`},
	{"linkedin", `LinkedInApp`},
	{"snapchat", `Snapchat/`},
	{"pinterest", `Pinterest for iOS|\[Pinterest/Android`},
	{"line", `\bLine/`},
	{"wechat", `MicroMessenger`},
	{"kakaotalk", `KAKAOTALK`},
}

// DefaultSignatures returns a fresh copy of the built-in signature list.
func DefaultSignatures() []Signature {
	sigs := make([]Signature, 0, len(defaultSignatures))
	for _, s := range defaultSignatures {
		sigs = append(sigs, Signature{App: s.app, Pattern: regexp.MustCompile(s.pattern)})
	}
	return sigs
}

// CompileSignature builds a Signature from a configured app name and pattern.
func CompileSignature(app, pattern string) (Signature, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return Signature{}, fmt.Errorf("signature %q: %w", app, err)
	}
	return Signature{App: strings.ToLower(strings.TrimSpace(app)), Pattern: re}, nil
}

type Classifier struct {
	signatures []Signature
}

// NewClassifier uses the given signatures in order. A nil slice selects the
// defaults; an empty non-nil slice disables in-app detection entirely.
func NewClassifier(signatures []Signature) *Classifier {
	if signatures == nil {
		signatures = DefaultSignatures()
	}
	return &Classifier{signatures: signatures}
}

// Classify never fails. Empty and unrecognised user agents are reported as
// a non-embedded client on PlatformOther.
func (c *Classifier) Classify(userAgent string) Client {
	if strings.TrimSpace(userAgent) == "" {
		return Client{Platform: PlatformOther, Device: DeviceUnknown}
	}

	parsed := ua.Parse(userAgent)
	client := Client{
		Platform: detectPlatform(userAgent, parsed),
		Browser:  browserName(parsed.Name),
	}

	for _, sig := range c.signatures {
		if sig.Pattern.MatchString(userAgent) {
			client.InApp = true
			client.App = sig.App
			break
		}
	}

	client.Bot = parsed.Bot && !client.InApp
	client.Device = deviceKind(parsed, client.Bot)
	return client
}

// Apps lists signature names in match order.
func (c *Classifier) Apps() []string {
	apps := make([]string, len(c.signatures))
	for i, sig := range c.signatures {
		apps[i] = sig.App
	}
	return apps
}

func detectPlatform(raw string, parsed ua.UserAgent) Platform {
	switch {
	case windowsPhone.MatchString(raw):
		return PlatformOther
	case parsed.IsIOS(), iosFallback.MatchString(raw):
		return PlatformIOS
	case parsed.IsAndroid():
		return PlatformAndroid
	default:
		return PlatformOther
	}
}

// deviceKind follows the parser's flags, checking bots first.
func deviceKind(parsed ua.UserAgent, bot bool) string {
	switch {
	case bot:
		return DeviceBot
	case parsed.Tablet:
		return DeviceTablet
	case parsed.Mobile:
		return DeviceMobile
	case parsed.Desktop:
		return DeviceDesktop
	default:
		return DeviceUnknown
	}
}

func browserName(name string) string {
	if knownBrowsers[name] {
		return name
	}
	return BrowserOther
}
