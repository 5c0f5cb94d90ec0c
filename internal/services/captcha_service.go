package services

import (
	"fmt"
	"math/rand/v2"
	"strconv"
	"strings"
)

type CaptchaService struct{}

func NewCaptchaService() *CaptchaService {
	return &CaptchaService{}
}

// GenerateMathProblem returns a display string (e.g. "3 + 5") and the integer answer.
// The answer is kept in the session, the question is shown to the user.
func (s *CaptchaService) GenerateMathProblem() (string, int) {
	a := rand.IntN(10)
	b := rand.IntN(10)

	if rand.IntN(2) == 0 {
		return fmt.Sprintf("%d + %d", a, b), a + b
	}
	// 减法保证结果非负
	if a < b {
		a, b = b, a
	}
	return fmt.Sprintf("%d - %d", a, b), a - b
}

// Check compares the answer stored in the session with the user's input.
func (s *CaptchaService) Check(expected any, given string) bool {
	want, ok := expected.(int)
	if !ok {
		return false
	}
	got, err := strconv.Atoi(strings.TrimSpace(given))
	return err == nil && got == want
}
