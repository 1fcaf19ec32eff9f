package domain

// Store keys shared by the background collaborator and the core.
const (
	KeyProfiles            = "profiles"
	KeyProfilesOrder       = "profilesOrder"
	KeyActiveProfile       = "activeProfile"
	KeyRecentlyUninstalled = "recentlyUninstalled"
	KeyKnownDetectedIDs    = "knownDetectedIds"
	KeyDetectedModList     = "detectedModList"
	KeyCurrentMod          = "currentMod"
)

// Settings keys, all booleans unless noted
const (
	KeyRandomizeAll          = "autoModIdentificationChecked"
	KeyUninstallAndReinstall = "uninstallAndReinstallChecked"
	KeyOpenModsTab           = "openModsTabChecked"
	KeyShowNotifications     = "showNotificationsChecked"
	KeyRandomizeOnStartup    = "toggleRandomizeOnStartupChecked"
	KeyRandomizeOnSetTime    = "toggleRandomizeOnSetTimeChecked"
	KeyRandomizeTime         = "randomizeTime" // minutes, number
	KeyTimeUnit              = "timeUnit"      // string
)

// BoolSettingDefaults lists every boolean setting with the value assumed when it was never stored.
var BoolSettingDefaults = map[string]bool{
	KeyRandomizeAll:          false,
	KeyUninstallAndReinstall: true,
	KeyOpenModsTab:           true,
	KeyShowNotifications:     true,
	KeyRandomizeOnStartup:    false,
	KeyRandomizeOnSetTime:    false,
}
