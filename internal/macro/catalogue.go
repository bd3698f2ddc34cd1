// file: internal/macro/catalogue.go

package macro

import "strings"

// catalogueEntry describes one simple {NAME} macro
type catalogueEntry struct {
	family    Family
	canonical string
	indexable bool
}

// Host fields
const (
	macroHostHost        = "HOST.HOST"
	macroHostName        = "HOST.NAME"
	macroHostDescription = "HOST.DESCRIPTION"
	macroHostID          = "HOST.ID"
)

// Interface fields
const (
	macroHostIP   = "HOST.IP"
	macroHostDNS  = "HOST.DNS"
	macroHostConn = "HOST.CONN"
	macroHostPort = "HOST.PORT"
)

// Positional item fields
const (
	macroItemLastValue = "ITEM.LASTVALUE"
	macroItemValue     = "ITEM.VALUE"
	macroItemName      = "ITEM.NAME"
	macroItemKey       = "ITEM.KEY"
	macroItemID        = "ITEM.ID"
)

const (
	macroTriggerID      = "TRIGGER.ID"
	inventoryPrefix     = "INVENTORY."
	legacyProfilePrefix = "PROFILE."
)

// inventoryFields maps the macro suffix after INVENTORY. to the inventory field name
var inventoryFields = map[string]string{}

// legacyProfileFields maps PROFILE.* aliases to their INVENTORY.* suffix
var legacyProfileFields = map[string]string{
	"DEVICETYPE": "TYPE",
	"NAME":       "NAME",
	"OS":         "OS",
	"SERIALNO":   "SERIALNO.A",
	"TAG":        "TAG",
	"MACADDRESS": "MACADDRESS.A",
	"HARDWARE":   "HARDWARE",
	"SOFTWARE":   "SOFTWARE",
	"CONTACT":    "CONTACT",
	"LOCATION":   "LOCATION",
	"NOTES":      "NOTES",
}

var catalogue = map[string]catalogueEntry{
	macroHostHost:        {FamilyHost, macroHostHost, true},
	"HOSTNAME":           {FamilyHost, macroHostHost, true},
	macroHostName:        {FamilyHost, macroHostName, true},
	macroHostDescription: {FamilyHost, macroHostDescription, true},
	macroHostID:          {FamilyHost, macroHostID, true},

	macroHostIP:   {FamilyInterface, macroHostIP, true},
	"IPADDRESS":   {FamilyInterface, macroHostIP, true},
	macroHostDNS:  {FamilyInterface, macroHostDNS, true},
	macroHostConn: {FamilyInterface, macroHostConn, true},
	macroHostPort: {FamilyInterface, macroHostPort, true},

	macroItemLastValue: {FamilyPositional, macroItemLastValue, true},
	macroItemValue:     {FamilyPositional, macroItemValue, true},
	macroItemName:      {FamilyPositional, macroItemName, true},
	macroItemKey:       {FamilyPositional, macroItemKey, true},
	macroItemID:        {FamilyPositional, macroItemID, true},

	macroTriggerID: {FamilyTrigger, macroTriggerID, false},
}

func init() {
	simple := []string{
		"TYPE", "TYPE.FULL", "NAME", "ALIAS", "OS", "OS.FULL", "OS.SHORT",
		"SERIALNO.A", "SERIALNO.B", "TAG", "ASSET.TAG", "MACADDRESS.A", "MACADDRESS.B",
		"HARDWARE", "HARDWARE.FULL", "SOFTWARE", "SOFTWARE.FULL",
		"SOFTWARE.APP.A", "SOFTWARE.APP.B", "SOFTWARE.APP.C", "SOFTWARE.APP.D", "SOFTWARE.APP.E",
		"CONTACT", "LOCATION", "LOCATION.LAT", "LOCATION.LON", "NOTES", "CHASSIS", "MODEL",
		"HW.ARCH", "VENDOR", "CONTRACT.NUMBER", "INSTALLER.NAME", "DEPLOYMENT.STATUS",
		"URL.A", "URL.B", "URL.C",
		"HOST.NETWORKS", "HOST.NETMASK", "HOST.ROUTER", "OOB.IP", "OOB.NETMASK", "OOB.ROUTER",
		"HW.DATE.PURCHASE", "HW.DATE.INSTALL", "HW.DATE.EXPIRY", "HW.DATE.DECOMM",
		"SITE.ADDRESS.A", "SITE.ADDRESS.B", "SITE.ADDRESS.C", "SITE.CITY", "SITE.STATE",
		"SITE.COUNTRY", "SITE.ZIP", "SITE.RACK", "SITE.NOTES",
	}
	for _, name := range simple {
		inventoryFields[name] = fieldName(name)
	}

	// point of contact fields are stored as poc_1_* and poc_2_*
	for prefix, n := range map[string]string{"POC.PRIMARY.": "1", "POC.SECONDARY.": "2"} {
		for _, suffix := range []string{"NAME", "EMAIL", "PHONE.A", "PHONE.B", "CELL", "SCREEN", "NOTES"} {
			inventoryFields[prefix+suffix] = "poc_" + n + "_" + fieldName(suffix)
		}
	}

	for name := range inventoryFields {
		canonical := inventoryPrefix + name
		catalogue[canonical] = catalogueEntry{FamilyInventory, canonical, true}
	}
	for alias, name := range legacyProfileFields {
		catalogue[legacyProfilePrefix+alias] = catalogueEntry{FamilyInventory, inventoryPrefix + name, true}
	}
}

func fieldName(macroSuffix string) string {
	return strings.ToLower(strings.ReplaceAll(macroSuffix, ".", "_"))
}

// InventoryField returns the inventory field behind a canonical INVENTORY.* name
func InventoryField(canonical string) (string, bool) {
	field, ok := inventoryFields[strings.TrimPrefix(canonical, inventoryPrefix)]
	return field, ok
}

// lookupSimple resolves a name as written between the braces, honouring an
// index suffix 1..9 when indexed is set.
func lookupSimple(name string, indexed bool) (catalogueEntry, int, bool) {
	if e, ok := catalogue[name]; ok {
		return e, 0, true
	}
	if !indexed || len(name) < 2 {
		return catalogueEntry{}, 0, false
	}
	last := name[len(name)-1]
	if last < '1' || last > '9' {
		return catalogueEntry{}, 0, false
	}
	e, ok := catalogue[name[:len(name)-1]]
	if !ok || !e.indexable {
		return catalogueEntry{}, 0, false
	}
	return e, int(last - '0'), true
}

// isHostRefName reports whether a host written as {NAME} inside an item function
// refers to the technical host name
func isHostRefName(canonical string) bool {
	return canonical == macroHostHost
}
