//go:build windows

package platform

import (
	"fmt"
	"syscall"
	"unsafe"

	"golang.org/x/sys/windows"
)

var (
	hidDLL                = windows.NewLazySystemDLL("hid.dll")
	procHidDGetAttributes = hidDLL.NewProc("HidD_GetAttributes")
)

type hidAttributes struct {
	size       uint32
	vendorID   uint16
	productID  uint16
	versionNum uint16
}

// HIDDevice is an opened raw HID device handle.
type HIDDevice struct {
	path    string
	handle  windows.Handle
}

// OpenHIDDevice opens a device path reported by a WM_DEVICECHANGE /
// RegisterDeviceNotification arrival event for overlapped read/write.
func OpenHIDDevice(path string) (*HIDDevice, error) {
	u16, err := windows.UTF16PtrFromString(path)
	if err != nil {
		return nil, err
	}
	h, err := windows.CreateFile(
		u16,
		windows.GENERIC_READ|windows.GENERIC_WRITE,
		windows.FILE_SHARE_READ|windows.FILE_SHARE_WRITE,
		nil,
		windows.OPEN_EXISTING,
		windows.FILE_FLAG_OVERLAPPED,
		0,
	)
	if err != nil {
		return nil, fmt.Errorf("CreateFile %s: %w", path, err)
	}
	return &HIDDevice{path: path, handle: h}, nil
}

func (d *HIDDevice) Close() error {
	return windows.CloseHandle(d.handle)
}

// Attributes reads the device's vendor/product/version IDs via
// HidD_GetAttributes: the IDs a caller passes to Registry.OnArrive
// (spec.md §6).
func (d *HIDDevice) Attributes() (vendorID, productID, version uint16, err error) {
	var attr hidAttributes
	attr.size = uint32(unsafe.Sizeof(attr))
	ret, _, callErr := procHidDGetAttributes.Call(uintptr(d.handle), uintptr(unsafe.Pointer(&attr)))
	if ret == 0 {
		return 0, 0, 0, fmt.Errorf("HidD_GetAttributes %s: %w", d.path, callErr)
	}
	return attr.vendorID, attr.productID, attr.versionNum, nil
}

// ReadReport blocks for the next input report, sized for the fixed Xbox360
// report layout (spec.md §4.1).
func (d *HIDDevice) ReadReport(buf []byte) (int, error) {
	var n uint32
	var overlapped windows.Overlapped
	event, err := windows.CreateEvent(nil, 1, 0, nil)
	if err != nil {
		return 0, err
	}
	defer windows.CloseHandle(event)
	overlapped.HEvent = event

	err = windows.ReadFile(d.handle, buf, &n, &overlapped)
	if err != nil && err != windows.ERROR_IO_PENDING {
		return 0, err
	}
	if err == windows.ERROR_IO_PENDING {
		if _, err := windows.WaitForSingleObject(event, windows.INFINITE); err != nil {
			return 0, err
		}
		if err := windows.GetOverlappedResult(d.handle, &overlapped, &n, false); err != nil {
			return 0, err
		}
	}
	return int(n), nil
}

// writeReport is a synchronous output-report write of a fixed-size packet.
func (d *HIDDevice) writeReport(packet []byte) (int, error) {
	var n uint32
	err := windows.WriteFile(d.handle, packet, &n, nil)
	if err != nil && err != syscall.ERROR_IO_PENDING {
		return int(n), err
	}
	return int(n), nil
}

// HIDDeviceRegistry maps instance ids to their opened HID handle and
// implements fusion.HIDRumbleSink across all of them (spec.md §4.6
// terminal path).
type HIDDeviceRegistry struct {
	devices map[int]*HIDDevice
}

func NewHIDDeviceRegistry() *HIDDeviceRegistry {
	return &HIDDeviceRegistry{devices: make(map[int]*HIDDevice)}
}

func (r *HIDDeviceRegistry) Add(instanceID int, dev *HIDDevice) {
	r.devices[instanceID] = dev
}

func (r *HIDDeviceRegistry) Remove(instanceID int) {
	if dev, ok := r.devices[instanceID]; ok {
		_ = dev.Close()
		delete(r.devices, instanceID)
	}
}

func (r *HIDDeviceRegistry) WriteRumble(instanceID int, packet []byte) (int, error) {
	dev, ok := r.devices[instanceID]
	if !ok {
		return 0, fmt.Errorf("no HID handle open for instance %d", instanceID)
	}
	return dev.writeReport(packet)
}
