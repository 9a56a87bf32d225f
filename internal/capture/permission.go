// ABOUTME: Microphone permission query
// ABOUTME: Platform hook consulted before microphone capture starts
package capture

// Permission reports whether the platform granted microphone access
type Permission interface {
	MicrophoneGranted() bool
}

// PermissionFunc adapts a function to Permission
type PermissionFunc func() bool

// MicrophoneGranted calls f
func (f PermissionFunc) MicrophoneGranted() bool { return f() }

// AlwaysGranted is used on desktop platforms without a permission model
var AlwaysGranted Permission = PermissionFunc(func() bool { return true })

// Denied refuses microphone access
var Denied Permission = PermissionFunc(func() bool { return false })
