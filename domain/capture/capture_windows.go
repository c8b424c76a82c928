//go:build windows

package capture

// Windows screen capture using per-call GDI allocations.
// Each grab creates a temporary DIB section, BitBlt's the requested desktop
// rectangle into it and converts BGRA->RGBA into a pooled *image.RGBA.

import (
	"fmt"
	"image"
	"unsafe"

	"golang.org/x/sys/windows"
)

const (
	srccopy             = 0x00CC0020
	captureBlt          = 0x40000000
	dibRGBColors        = 0
	biRgb               = 0
	monitorInfoPrimary  = 0x1
	smCxVirtualScreen   = 78
	smCyVirtualScreen   = 79
	smXVirtualScreen    = 76
	smYVirtualScreen    = 77
	gdiError            = ^uintptr(0)
	maxEnumeratedScreen = 16
)

var (
	user32                 = windows.NewLazySystemDLL("user32.dll")
	gdi32                  = windows.NewLazySystemDLL("gdi32.dll")
	procGetDC              = user32.NewProc("GetDC")
	procReleaseDC          = user32.NewProc("ReleaseDC")
	procGetSystemMetrics   = user32.NewProc("GetSystemMetrics")
	procEnumDisplayMon     = user32.NewProc("EnumDisplayMonitors")
	procGetMonitorInfoW    = user32.NewProc("GetMonitorInfoW")
	procCreateCompatibleDC = gdi32.NewProc("CreateCompatibleDC")
	procDeleteDC           = gdi32.NewProc("DeleteDC")
	procSelectObject       = gdi32.NewProc("SelectObject")
	procBitBlt             = gdi32.NewProc("BitBlt")
	procCreateDIBSection   = gdi32.NewProc("CreateDIBSection")
	procDeleteObject       = gdi32.NewProc("DeleteObject")
)

type bitmapInfoHeader struct {
	BiSize          uint32
	BiWidth         int32
	BiHeight        int32
	BiPlanes        uint16
	BiBitCount      uint16
	BiCompression   uint32
	BiSizeImage     uint32
	BiXPelsPerMeter int32
	BiYPelsPerMeter int32
	BiClrUsed       uint32
	BiClrImportant  uint32
}

type bitmapInfo struct {
	Header bitmapInfoHeader
	_      [4]byte // one RGBQUAD placeholder (unused for 32-bit)
}

type monitorInfo struct {
	CbSize    uint32
	RcMonitor windows.Rect
	RcWork    windows.Rect
	DwFlags   uint32
}

// enumMonitors lists monitor rectangles in desktop coordinates, primary first.
func enumMonitors() ([]image.Rectangle, error) {
	var primary []image.Rectangle
	var others []image.Rectangle
	cb := windows.NewCallback(func(hmon, hdc, lprc, lparam uintptr) uintptr {
		mi := monitorInfo{CbSize: uint32(unsafe.Sizeof(monitorInfo{}))}
		r, _, _ := procGetMonitorInfoW.Call(hmon, uintptr(unsafe.Pointer(&mi)))
		if r == 0 {
			return 1
		}
		rect := image.Rect(int(mi.RcMonitor.Left), int(mi.RcMonitor.Top), int(mi.RcMonitor.Right), int(mi.RcMonitor.Bottom))
		if mi.DwFlags&monitorInfoPrimary != 0 {
			primary = append(primary, rect)
		} else if len(others) < maxEnumeratedScreen {
			others = append(others, rect)
		}
		return 1
	})
	if r, _, err := procEnumDisplayMon.Call(0, 0, cb, 0); r == 0 {
		return nil, fmt.Errorf("EnumDisplayMonitors: %w", err)
	}
	if len(primary) == 0 && len(others) == 0 {
		w := int(getSystemMetric(smCxVirtualScreen))
		h := int(getSystemMetric(smCyVirtualScreen))
		x := int(getSystemMetric(smXVirtualScreen))
		y := int(getSystemMetric(smYVirtualScreen))
		if w <= 0 || h <= 0 {
			return nil, fmt.Errorf("invalid virtual screen size w=%d h=%d", w, h)
		}
		return []image.Rectangle{image.Rect(x, y, x+w, y+h)}, nil
	}
	return append(primary, others...), nil
}

// grabRect performs BitBlt into a top-down DIB section and returns the pixels
// in a pooled *image.RGBA whose bounds start at (0,0).
func grabRect(r image.Rectangle) (*image.RGBA, error) {
	w, h := r.Dx(), r.Dy()
	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("capture: invalid rect %v", r)
	}

	screenDC, _, err := procGetDC.Call(0)
	if screenDC == 0 {
		return nil, fmt.Errorf("capture: GetDC: %w", err)
	}
	defer procReleaseDC.Call(0, screenDC)

	memDC, _, err := procCreateCompatibleDC.Call(screenDC)
	if memDC == 0 {
		return nil, fmt.Errorf("capture: CreateCompatibleDC: %w", err)
	}
	defer procDeleteDC.Call(memDC)

	var bi bitmapInfo
	bi.Header.BiSize = uint32(unsafe.Sizeof(bi.Header))
	bi.Header.BiWidth = int32(w)
	bi.Header.BiHeight = -int32(h) // top-down
	bi.Header.BiPlanes = 1
	bi.Header.BiBitCount = 32
	bi.Header.BiCompression = biRgb
	bi.Header.BiSizeImage = uint32(w * h * 4)

	var bitsPtr unsafe.Pointer
	bmp, _, err := procCreateDIBSection.Call(memDC, uintptr(unsafe.Pointer(&bi)), dibRGBColors, uintptr(unsafe.Pointer(&bitsPtr)), 0, 0)
	if bmp == 0 {
		return nil, fmt.Errorf("capture: CreateDIBSection: %w", err)
	}
	defer procDeleteObject.Call(bmp)

	prev, _, err := procSelectObject.Call(memDC, bmp)
	if prev == 0 || prev == gdiError {
		return nil, fmt.Errorf("capture: SelectObject: %w", err)
	}

	x0, y0 := r.Min.X, r.Min.Y
	ok, _, err := procBitBlt.Call(memDC, 0, 0, uintptr(w), uintptr(h), screenDC, uintptr(x0), uintptr(y0), srccopy|captureBlt)
	if ok == 0 {
		return nil, fmt.Errorf("capture: BitBlt x=%d y=%d w=%d h=%d: %w", x0, y0, w, h, err)
	}

	pixLen := w * h * 4
	src := unsafe.Slice((*byte)(bitsPtr), pixLen)
	dst := acquireFrame(image.Rect(0, 0, w, h))
	for i := 0; i < pixLen; i += 4 {
		dst.Pix[i+0] = src[i+2]
		dst.Pix[i+1] = src[i+1]
		dst.Pix[i+2] = src[i+0]
		dst.Pix[i+3] = 0xFF
	}
	return dst, nil
}

func getSystemMetric(idx int) int32 {
	v, _, _ := procGetSystemMetrics.Call(uintptr(idx))
	return int32(v)
}
