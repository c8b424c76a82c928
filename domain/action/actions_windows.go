package action

import (
	"errors"
	"time"
	"unsafe"

	"github.com/lxn/win"
	"golang.org/x/sys/windows"
)

var (
	user32               = windows.NewLazySystemDLL("user32.dll")
	procGetAsyncKeyState = user32.NewProc("GetAsyncKeyState")
)

// keyGap separates the individual key events of a combination.
const keyGap = 30 * time.Millisecond

// Win32 injects input through SendInput.
type Win32 struct{}

// New returns the platform actuator.
func New() Actuator { return Win32{} }

func (Win32) MoveTo(x, y int) error {
	if !win.SetCursorPos(int32(x), int32(y)) {
		return errors.New("SetCursorPos failed")
	}
	return nil
}

func (Win32) Position() (int, int, error) {
	var p win.POINT
	if !win.GetCursorPos(&p) {
		return 0, 0, errors.New("GetCursorPos failed")
	}
	return int(p.X), int(p.Y), nil
}

func (Win32) Press() error   { return sendMouse(win.MOUSEEVENTF_LEFTDOWN) }
func (Win32) Release() error { return sendMouse(win.MOUSEEVENTF_LEFTUP) }

func (Win32) SendKeys(combo string) error {
	keys, err := ParseCombo(combo)
	if err != nil {
		return err
	}
	for _, vk := range keys {
		if err := sendKey(vk, 0); err != nil {
			return err
		}
		time.Sleep(keyGap)
	}
	for i := len(keys) - 1; i >= 0; i-- {
		if err := sendKey(keys[i], win.KEYEVENTF_KEYUP); err != nil {
			return err
		}
		time.Sleep(keyGap)
	}
	return nil
}

func sendMouse(flags uint32) error {
	in := win.MOUSE_INPUT{
		Type: win.INPUT_MOUSE,
		Mi:   win.MOUSEINPUT{DwFlags: flags},
	}
	if win.SendInput(1, unsafe.Pointer(&in), int32(unsafe.Sizeof(in))) != 1 {
		return errors.New("SendInput (mouse) rejected")
	}
	return nil
}

func sendKey(vk uint16, flags uint32) error {
	in := win.KEYBD_INPUT{
		Type: win.INPUT_KEYBOARD,
		Ki:   win.KEYBDINPUT{WVk: vk, DwFlags: flags},
	}
	if win.SendInput(1, unsafe.Pointer(&in), int32(unsafe.Sizeof(in))) != 1 {
		return errors.New("SendInput (keyboard) rejected")
	}
	return nil
}

// KeyDown reports whether the key is currently held.
func KeyDown(vk uint16) bool {
	r, _, _ := procGetAsyncKeyState.Call(uintptr(vk))
	return r&0x8000 != 0
}
