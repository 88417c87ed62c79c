package services

// SetCompare replaces the password comparison used by Verify.
func SetCompare(s *AuthService, compare func(hash, plain []byte) error) {
	s.compare = compare
}
