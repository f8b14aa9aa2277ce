//go:build !linux

package provider

func isCellularDevice(string) bool { return false }
