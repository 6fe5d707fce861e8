package probe

import "errors"

var (
	ErrNavigationFailed  = errors.New("navigation did not reach the expected page")
	ErrStructureMismatch = errors.New("page structure did not match")
	ErrIndeterminate     = errors.New("availability could not be determined")
	ErrStoreSelection    = errors.New("store selection failed")
	ErrLockAcquisition   = errors.New("account lock not acquired")
	ErrLogin             = errors.New("login failed")
)
