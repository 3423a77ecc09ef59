package usecase

import (
	"errors"
	"fmt"
)

var (
	ErrRemote     = errors.New("remote catalog error")
	ErrRepository = errors.New("repository error")
)

func wrapRemote(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %v", ErrRemote, err)
}

func wrapRepo(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %v", ErrRepository, err)
}
