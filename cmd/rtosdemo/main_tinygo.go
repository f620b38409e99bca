//go:build tinygo

package main

import (
	"rmskernel/hal"
)

func main() {
	h := hal.New()
	newDemo(h)
	select {}
}
