//go:build !release

package config

const validationDefault = true
