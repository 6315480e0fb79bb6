package constant

// Required global functions a Lua spider script must define.
const (
	SpiderPlayerContentFn = "PlayerContent"
	SpiderInitFn          = "Init"
)
