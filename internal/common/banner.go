package common

import (
	"github.com/ternarybob/banner"
)

// PrintBanner displays the startup banner with build details
func PrintBanner(version string) {
	b := banner.New().SetWidth(60)
	b.PrintTopLine()
	b.PrintCenteredText("Aemulus")
	b.PrintSeparatorLine()
	b.PrintKeyValue("Version", version, 10)
	b.PrintKeyValue("Build", GetBuild(), 10)
	b.PrintBottomLine()
}
