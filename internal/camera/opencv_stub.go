//go:build !gocv

package camera

import "errors"

func OpenDevice(device string) (Source, error) {
	return nil, &DeviceError{Op: "open " + device, Err: errors.New("capture devices not enabled; build with -tags gocv")}
}
