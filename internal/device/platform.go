package device

// Platform names. Keep these stable; they are part of auth and queue contracts.
const (
	PlatformPhone   = "phone"
	PlatformDesktop = "desktop"
	PlatformWeb     = "web"
)

func IsValidPlatform(p string) bool {
	switch p {
	case PlatformPhone, PlatformDesktop, PlatformWeb:
		return true
	default:
		return false
	}
}
