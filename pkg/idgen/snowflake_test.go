package idgen

import (
	"strings"
	"testing"
)

func TestNextID_Unique(t *testing.T) {
	seen := make(map[int64]bool)
	for i := 0; i < 10000; i++ {
		id := NextID()
		if seen[id] {
			t.Fatalf("第 %d 次生成出现重复 ID: %d", i, id)
		}
		seen[id] = true
	}
}

func TestNextID_Increasing(t *testing.T) {
	prev := NextID()
	for i := 0; i < 1000; i++ {
		id := NextID()
		if id <= prev {
			t.Fatalf("ID 应趋势递增: %d <= %d", id, prev)
		}
		prev = id
	}
}

func TestGenerateInvoiceNo(t *testing.T) {
	no := GenerateInvoiceNo()
	if !strings.HasPrefix(no, "INV") {
		t.Errorf("发票号应以 INV 开头，得到 %q", no)
	}
	// INV + 14位时间 + 8位序号
	if len(no) != 3+14+8 {
		t.Errorf("发票号长度错误: %q (%d)", no, len(no))
	}

	if GenerateInvoiceNo() == no {
		t.Error("连续生成的发票号不应重复")
	}
}
