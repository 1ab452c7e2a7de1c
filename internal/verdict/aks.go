package verdict

import (
	"github.com/Masterminds/semver/v3"
)

// Upgrade is one control-plane upgrade offered by AKS.
type Upgrade struct {
	KubernetesVersion string
	IsPreview         bool
}

// AKS availability strings shown in the upgradeableVersion column.
const (
	NoUpdatesAvailable   = "No updates available"
	OnlyPreviewAvailable = "Only Preview available"
)

// AKSVerdict picks the highest generally available upgrade and classifies it
// against the current control-plane version. It returns the value to display
// as the upgradeable version alongside the status.
//
// An upgrade within the same minor line is a patch update (orange); anything
// that moves the minor version means the cluster is falling behind (red).
func AKSVerdict(current string, upgrades []Upgrade) (string, Status) {
	if len(upgrades) == 0 {
		return NoUpdatesAvailable, Status{ColorCode: ColorGreen, Verdict: "No update required"}
	}

	var best *semver.Version
	bestRaw := ""
	for _, u := range upgrades {
		if u.IsPreview {
			continue
		}
		v, err := semver.NewVersion(u.KubernetesVersion)
		if err != nil {
			continue
		}
		if best == nil || v.GreaterThan(best) {
			best = v
			bestRaw = u.KubernetesVersion
		}
	}
	if best == nil {
		return OnlyPreviewAvailable, Status{ColorCode: ColorOrange, Verdict: "Wait for general availability"}
	}

	cur, err := semver.NewVersion(current)
	if err != nil {
		return bestRaw, Status{ColorCode: ColorRed, Verdict: "Update"}
	}
	if best.Major() == cur.Major() && best.Minor() <= cur.Minor() {
		return bestRaw, Status{ColorCode: ColorOrange, Verdict: "Patch version update only"}
	}
	return bestRaw, Status{ColorCode: ColorRed, Verdict: "Update"}
}
