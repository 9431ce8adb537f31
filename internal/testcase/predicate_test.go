package testcase

import "testing"

func TestEvaluateResultExprBareWord(t *testing.T) {
	if !EvaluateResultExpr("pass", StatusPass) {
		t.Fatal("expected pass to satisfy \"pass\"")
	}
	if EvaluateResultExpr("pass", StatusFail) {
		t.Fatal("expected fail not to satisfy \"pass\"")
	}
}

func TestEvaluateResultExprOr(t *testing.T) {
	expr := "pass or diff"
	if !EvaluateResultExpr(expr, StatusPass) {
		t.Fatal("expected pass to satisfy or-expression")
	}
	if !EvaluateResultExpr(expr, StatusDiff) {
		t.Fatal("expected diff to satisfy or-expression")
	}
	if EvaluateResultExpr(expr, StatusFail) {
		t.Fatal("expected fail not to satisfy or-expression")
	}
}

func TestEvaluateResultExprNotAnd(t *testing.T) {
	expr := "not fail and not timeout"
	if !EvaluateResultExpr(expr, StatusPass) {
		t.Fatal("expected pass to satisfy not-and-expression")
	}
	if EvaluateResultExpr(expr, StatusFail) {
		t.Fatal("expected fail not to satisfy not-and-expression")
	}
	if EvaluateResultExpr(expr, StatusTimeout) {
		t.Fatal("expected timeout not to satisfy not-and-expression")
	}
}

func TestEvaluateResultExprParens(t *testing.T) {
	expr := "(pass or diff) and not timeout"
	if !EvaluateResultExpr(expr, StatusDiff) {
		t.Fatal("expected diff to satisfy parenthesized expression")
	}
	if EvaluateResultExpr(expr, StatusTimeout) {
		t.Fatal("expected timeout not to satisfy parenthesized expression")
	}
}

func TestEvaluateResultExprCaseInsensitive(t *testing.T) {
	if !EvaluateResultExpr("PASS OR DIFF", StatusDiff) {
		t.Fatal("expected case-insensitive matching")
	}
}
