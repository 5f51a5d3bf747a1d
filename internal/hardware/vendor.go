package hardware

import "strings"

// Vendor identifies the CPU manufacturer, which determines the hardware
// encoder stack worth probing.
type Vendor string

const (
	VendorIntel   Vendor = "intel"
	VendorAMD     Vendor = "amd"
	VendorARM     Vendor = "arm"
	VendorUnknown Vendor = "unknown"
)

// backendPriority lists each vendor's encoder paths in preference order.
// Probing keeps the usable entries; the last entry always works.
var backendPriority = map[Vendor][]Backend{
	VendorIntel:   {BackendQSV, BackendVAAPI, BackendSoftware},
	VendorAMD:     {BackendVAAPI, BackendSoftware},
	VendorARM:     {BackendV4L2M2M, BackendSoftware},
	VendorUnknown: {BackendSoftware},
}

// detectVendor classifies vendor-id, model-name, and architecture strings.
// Intel wins over AMD wins over ARM when the strings are ambiguous, matching
// the order the ID substrings are checked.
func detectVendor(vendorID, modelName, arch string) Vendor {
	vendorID = strings.ToLower(vendorID)
	modelName = strings.ToLower(modelName)
	arch = strings.ToLower(arch)

	if strings.Contains(vendorID, "intel") || strings.Contains(modelName, "intel") {
		return VendorIntel
	}
	if strings.Contains(vendorID, "amd") || strings.Contains(modelName, "amd") {
		return VendorAMD
	}
	if strings.Contains(arch, "arm") || strings.Contains(arch, "aarch64") ||
		strings.Contains(vendorID, "arm") || strings.Contains(modelName, "arm") {
		return VendorARM
	}
	return VendorUnknown
}
