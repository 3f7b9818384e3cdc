package server

import "golang.org/x/crypto/bcrypt"

// Credentials are stored as bcrypt hashes. The legacy service persisted
// plaintext passwords and compared them with raw equality; the externally
// observable success/failure semantics are unchanged, only the stored
// representation differs.

func hashPassword(passwd string) (string, error) {
	passwdHash, err := bcrypt.GenerateFromPassword([]byte(passwd), bcrypt.DefaultCost)
	return string(passwdHash), err
}

func verifyPassword(passwdHash, passwd string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(passwdHash), []byte(passwd))
	return err == nil
}
