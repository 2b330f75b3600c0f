package settings

// Setting keys. Names match the preference schema so existing
// configuration carries over.
const (
	KeyPanelOpacity        = "panel-opacity"
	KeyMenuOpacity         = "menu-opacity"
	KeyOverridePanelColor  = "override-panel-color"
	KeyPanelColor          = "choose-override-panel-color"
	KeyOverridePopupColor  = "override-popup-color"
	KeyPopupColor          = "choose-override-popup-color"
	KeyBorderRadius        = "border-radius"
	KeyApplyPanelRadius    = "apply-panel-radius"
	KeyAutoDetectRadius    = "auto-detect-radius"
	KeyBlurRadius          = "blur-radius"
	KeyBlurSaturate        = "blur-saturate"
	KeyBlurContrast        = "blur-contrast"
	KeyBlurBrightness      = "blur-brightness"
	KeyBlurBackground      = "blur-background"
	KeyBlurBorderColor     = "blur-border-color"
	KeyBlurBorderWidth     = "blur-border-width"
	KeyBlurOpacity         = "blur-opacity"
	KeyShadowStrength      = "shadow-strength"
	KeyShadowColor         = "shadow-color"
	KeyAltTabStyling       = "enable-alttab-styling"
	KeyEnableOverlay       = "enable-overlay-theme"
	KeyOverlaySourceTheme  = "overlay-source-theme"
	KeyOverlayAutoUpdate   = "overlay-auto-update"
	KeyAutoColorExtraction = "auto-color-extraction"
	KeyFullAutoMode        = "full-auto-mode"
	KeyAutoSwitchScheme    = "auto-switch-color-scheme"
	KeyFloatingPanel       = "enable-floating-panel-integration"
	KeyNotifications       = "notifications-enabled"
	KeyDebugLogging        = "debug-logging"

	KeyOriginalGTKTheme   = "original-gtk-theme"
	KeyOriginalShellTheme = "original-shell-theme"

	// Trigger keys carry no meaning in their value; each toggle is a request.
	KeyTriggerApply      = "manual-apply-trigger"
	KeyTriggerExtraction = "trigger-color-extraction"
	KeyTriggerRecreate   = "trigger-recreate-overlay"
)

// StyleKeys lists every key whose value is rendered into overlay CSS.
var StyleKeys = []string{
	KeyPanelOpacity,
	KeyMenuOpacity,
	KeyOverridePanelColor,
	KeyPanelColor,
	KeyOverridePopupColor,
	KeyPopupColor,
	KeyBorderRadius,
	KeyApplyPanelRadius,
	KeyBlurRadius,
	KeyBlurSaturate,
	KeyBlurContrast,
	KeyBlurBrightness,
	KeyBlurBackground,
	KeyBlurBorderColor,
	KeyBlurBorderWidth,
	KeyBlurOpacity,
	KeyShadowStrength,
	KeyShadowColor,
	KeyAltTabStyling,
}

// Defaults returns a fresh copy of the default value of every known key.
func Defaults() map[string]any {
	return map[string]any{
		KeyPanelOpacity:        0.6,
		KeyMenuOpacity:         0.8,
		KeyOverridePanelColor:  false,
		KeyPanelColor:          "rgba(46, 52, 64, 0.8)",
		KeyOverridePopupColor:  false,
		KeyPopupColor:          "rgba(255, 255, 255, 0.9)",
		KeyBorderRadius:        12,
		KeyApplyPanelRadius:    false,
		KeyAutoDetectRadius:    true,
		KeyBlurRadius:          22,
		KeyBlurSaturate:        0.95,
		KeyBlurContrast:        0.75,
		KeyBlurBrightness:      0.65,
		KeyBlurBackground:      "rgba(0, 0, 0, 0.3)",
		KeyBlurBorderColor:     "rgba(255, 255, 255, 0.15)",
		KeyBlurBorderWidth:     1,
		KeyBlurOpacity:         0.8,
		KeyShadowStrength:      0.3,
		KeyShadowColor:         "rgba(0, 0, 0, 0.3)",
		KeyAltTabStyling:       false,
		KeyEnableOverlay:       true,
		KeyOverlaySourceTheme:  "",
		KeyOverlayAutoUpdate:   true,
		KeyAutoColorExtraction: true,
		KeyFullAutoMode:        false,
		KeyAutoSwitchScheme:    true,
		KeyFloatingPanel:       false,
		KeyNotifications:       true,
		KeyDebugLogging:        false,
		KeyOriginalGTKTheme:    "",
		KeyOriginalShellTheme:  "",
		KeyTriggerApply:        false,
		KeyTriggerExtraction:   false,
		KeyTriggerRecreate:     false,
	}
}
