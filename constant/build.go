package constant

// Build metadata, overridden at link time.
var (
	BuiltAt  = "unknown"
	BuiltBy  = "unknown"
	Revision = "unknown"
)

// AsciiArtLogo is the banner shown on the root help screen.
const AsciiArtLogo = `
        _     _             _
 __   _(_) __| | __ _  __ _| |_ ___
 \ \ / / |/ _` + "`" + ` |/ _` + "`" + ` |/ _` + "`" + ` | __/ _ \
  \ V /| | (_| | (_| | (_| | ||  __/
   \_/ |_|\__,_|\__, |\__,_|\__\___|
                |___/
`
