package domain

import (
	"math/rand"
	"strconv"
)

// NewSessionCode returns a six-digit join code. Stores retry on collision.
func NewSessionCode() string {
	return strconv.Itoa(100000 + rand.Intn(900000))
}
