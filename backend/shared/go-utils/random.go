// go-utils/random.go

package utils

import (
	"crypto/rand"
	"encoding/hex"
)

func RandomString(length int) string {
	bytes := make([]byte, (length+1)/2)
	_, err := rand.Read(bytes)
	if err != nil {
		panic(err) // crypto/rand failing means the host is broken
	}
	return hex.EncodeToString(bytes)[:length]
}
