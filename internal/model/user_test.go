package model

import (
	"testing"
)

func TestCanModifyPayment(t *testing.T) {
	owner := int64(7)

	testCases := []struct {
		name     string
		role     string
		ownerID  *int64
		callerID int64
		want     bool
	}{
		{"管理员可操作任意记录", RoleAdmin, &owner, 1, true},
		{"管理员可操作无归属记录", RoleAdmin, nil, 1, true},
		{"本人可操作自己的记录", RoleUser, &owner, 7, true},
		{"普通用户不能操作他人记录", RoleUser, &owner, 8, false},
		{"普通用户不能操作无归属记录", RoleUser, nil, 7, false},
	}

	for _, tc := range testCases {
		if got := CanModifyPayment(tc.role, tc.ownerID, tc.callerID); got != tc.want {
			t.Errorf("%s: CanModifyPayment = %v, want %v", tc.name, got, tc.want)
		}
	}
}

func TestIsValidFrequency(t *testing.T) {
	for _, f := range []string{FrequencyWeekly, FrequencyMonthly, FrequencyQuarterly, FrequencyYearly} {
		if !IsValidFrequency(f) {
			t.Errorf("IsValidFrequency(%q) = false, want true", f)
		}
	}
	for _, f := range []string{"", "all", "daily", "Monthly"} {
		if IsValidFrequency(f) {
			t.Errorf("IsValidFrequency(%q) = true, want false", f)
		}
	}
}
