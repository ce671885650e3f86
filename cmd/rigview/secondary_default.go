//go:build twosensors

package main

const twoSensors = true
