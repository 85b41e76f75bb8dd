//go:build linux

package fontcheck

import (
	"os"
	"os/exec"
	"strings"
)

// knownCJKFontFamilies are font family names commonly associated with CJK support.
var knownCJKFontFamilies = []string{
	"Noto Sans CJK",
	"Noto Serif CJK",
	"WenQuanYi",
	"Source Han Sans",
	"Source Han Serif",
	"Droid Sans Fallback",
	"AR PL",
	"SimSun",
	"SimHei",
	"Microsoft YaHei",
}

var fontDirs = []string{
	"/usr/share/fonts",
	"/usr/local/share/fonts",
	"/usr/share/fonts/truetype",
	"/usr/share/fonts/opentype",
}

func detect() Status {
	fcList, err := exec.LookPath("fc-list")
	if err != nil {
		return detectByPath(fontDirs)
	}
	out, err := exec.Command(fcList, ":lang=zh").Output()
	if err != nil {
		return detectByPath(fontDirs)
	}
	return parseFCList(string(out))
}

// parseFCList interprets `fc-list :lang=zh` output.
func parseFCList(output string) Status {
	if strings.TrimSpace(output) == "" {
		return Status{}
	}
	var matched []string
	for _, kw := range knownCJKFontFamilies {
		if strings.Contains(output, kw) {
			matched = append(matched, kw)
		}
	}
	if len(matched) == 0 {
		// fc-list returned results but none matched known families; still counts
		matched = append(matched, "(other CJK fonts)")
	}
	return Status{Found: true, Families: matched}
}

// detectByPath looks for CJK font files by name when fc-list is unavailable.
func detectByPath(dirs []string) Status {
	cjkKeywords := []string{"noto", "cjk", "wenquanyi", "wqy", "droid", "source-han", "sourcehansans"}
	for _, dir := range dirs {
		entries, err := os.ReadDir(dir)
		if err != nil {
			continue
		}
		for _, e := range entries {
			lower := strings.ToLower(e.Name())
			for _, kw := range cjkKeywords {
				if strings.Contains(lower, kw) {
					return Status{Found: true, Families: []string{e.Name()}}
				}
			}
		}
	}
	return Status{}
}
