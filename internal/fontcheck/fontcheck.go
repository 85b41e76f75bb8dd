// Package fontcheck detects whether the host has the fonts slide rendering
// needs. GoPPT draws text with system fonts; on a bare Linux server, missing
// fonts (CJK in particular) turn rendered slide text into rectangles.
package fontcheck

import (
	"runtime"

	"go.uber.org/zap"
)

// Status is the result of a font probe.
type Status struct {
	Found    bool
	Families []string
}

// installHints maps distributions to the command that installs CJK fonts.
var installHints = []struct{ distro, cmd string }{
	{"Debian/Ubuntu", "apt-get install -y fonts-noto-cjk"},
	{"CentOS/RHEL/Fedora", "dnf install -y google-noto-sans-cjk-ttc-fonts"},
	{"Arch Linux", "pacman -S noto-fonts-cjk"},
	{"Alpine", "apk add font-noto-cjk"},
}

// Check probes for CJK-capable fonts and logs the outcome. It never installs
// anything. Outside Linux the OS ships suitable fonts and Check reports found.
func Check(log *zap.Logger) Status {
	if runtime.GOOS != "linux" {
		return Status{Found: true}
	}
	st := detect()
	if st.Found {
		log.Info("[PPT] slide rendering fonts available", zap.Strings("families", st.Families))
		return st
	}
	hints := make([]string, 0, len(installHints))
	for _, h := range installHints {
		hints = append(hints, h.distro+": "+h.cmd)
	}
	log.Warn("[PPT] no CJK fonts found; rendered slides may show boxes instead of text",
		zap.Strings("install", hints))
	return st
}
