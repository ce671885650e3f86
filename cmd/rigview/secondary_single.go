//go:build !twosensors

package main

const twoSensors = false
