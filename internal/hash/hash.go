package hash

import (
	"sync"

	"golang.org/x/crypto/bcrypt"
)

func HashPassword(password string) (string, error) {
	hashbytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}

	return string(hashbytes), nil
}

func CheckPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

var dummyHash = sync.OnceValue(func() string {
	h, _ := HashPassword("not-a-real-password")
	return h
})

// BurnCompare spends the same bcrypt work as CheckPassword for a login whose
// identifier did not match any user.
func BurnCompare(password string) {
	_ = CheckPassword(dummyHash(), password)
}

// WarmUp builds the decoy hash ahead of the first unknown-identifier login.
func WarmUp() {
	_ = dummyHash()
}
