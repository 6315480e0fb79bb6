// Package custom provides a bridge between the Go core and Lua-based spider scripts.
package custom

// Parse flag values a descriptor may carry.
const (
	// ParseDirect marks the URL as directly playable.
	ParseDirect = 0
	// ParseSniff marks the URL as needing resolution first.
	ParseSniff = 1
)

// Descriptor is the playback instruction a spider produces for one page.
type Descriptor struct {
	// Parse is 0 when URL is directly playable and 1 when the player must
	// still resolve it.
	Parse int `json:"parse"`

	// PlayURL is an optional parser endpoint prefix for the player.
	PlayURL string `json:"playUrl,omitempty"`

	// URL is the stream or page URL the spider extracted.
	URL string `json:"url"`

	// Header carries request headers the player must send.
	Header map[string]string `json:"header,omitempty"`
}

// StreamURL is the address the player should request: the parser endpoint
// prefix applied to the extracted URL when one is set.
func (d *Descriptor) StreamURL() string {
	if d.PlayURL == "" {
		return d.URL
	}
	return d.PlayURL + d.URL
}

// Source defines the required capabilities of an extraction spider.
type Source interface {
	// Name returns the unique identifier for the spider.
	Name() string

	// ID returns the unique identifier of the source.
	ID() string

	// PlayerContent produces the playback descriptor for one page id.
	PlayerContent(flag, id string, vipFlags []string) (*Descriptor, error)
}
