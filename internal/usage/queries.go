package usage

import (
	_ "embed"
	"regexp"
	"strings"
)

var (
	//go:embed queries/vm.kql
	vmQuery string

	//go:embed queries/vmss.kql
	vmssQuery string
)

var whitespace = regexp.MustCompile(`\s+`)

// VMQuery is the Resource Graph query listing running VMs with their
// subscription name and size.
func VMQuery() string { return compact(vmQuery) }

// ScaleSetQuery is the Resource Graph query listing scale sets with their
// subscription name, size and capacity.
func ScaleSetQuery() string { return compact(vmssQuery) }

func compact(q string) string {
	return strings.TrimSpace(whitespace.ReplaceAllString(q, " "))
}
