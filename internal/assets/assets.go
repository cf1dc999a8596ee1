// Package assets holds files embedded into the binary.
package assets

import (
	"embed"
	"strings"
)

//go:embed banner.txt
var bannerFS embed.FS

var BannerString string

func init() {
	bytes, err := bannerFS.ReadFile("banner.txt")
	if err != nil {
		// the banner is compiled in, so a read failure means a broken build
		panic(err)
	}

	BannerString = strings.TrimRight(string(bytes), "\n")
}
