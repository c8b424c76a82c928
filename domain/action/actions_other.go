//go:build !windows

package action

// unsupported rejects every call. Capture and matching still work, which
// keeps the displays/profiles commands usable off Windows.
type unsupported struct{}

// New returns the platform actuator.
func New() Actuator { return unsupported{} }

func (unsupported) MoveTo(int, int) error       { return ErrUnsupported }
func (unsupported) Position() (int, int, error) { return 0, 0, ErrUnsupported }
func (unsupported) Press() error                { return ErrUnsupported }
func (unsupported) Release() error              { return ErrUnsupported }
func (unsupported) SendKeys(string) error       { return ErrUnsupported }

// KeyDown always reports false.
func KeyDown(uint16) bool { return false }
