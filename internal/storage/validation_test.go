package storage

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Veraticus/the-spice-must-sort/internal/model"
)

func TestValidateContext(t *testing.T) {
	tests := []struct {
		ctx     context.Context
		name    string
		wantErr bool
	}{
		{
			name:    "valid context",
			ctx:     context.Background(),
			wantErr: false,
		},
		{
			name:    "nil context",
			ctx:     nil,
			wantErr: true,
		},
		{
			name: "canceled context still valid",
			ctx: func() context.Context {
				ctx, cancel := context.WithCancel(context.Background())
				cancel()
				return ctx
			}(),
			wantErr: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateContext(tt.ctx) //nolint:staticcheck // nil context is the case under test
			if (err != nil) != tt.wantErr {
				t.Errorf("validateContext() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateTransaction(t *testing.T) {
	valid := model.Transaction{
		ID:          "t1",
		Date:        time.Now(),
		Description: "COFFEE",
		AccountID:   "acc1",
	}
	catID := 3

	tests := []struct {
		mutate  func(*model.Transaction)
		name    string
		wantErr bool
	}{
		{name: "valid", mutate: func(*model.Transaction) {}},
		{name: "missing id", mutate: func(txn *model.Transaction) { txn.ID = "" }, wantErr: true},
		{name: "missing date", mutate: func(txn *model.Transaction) { txn.Date = time.Time{} }, wantErr: true},
		{name: "missing description", mutate: func(txn *model.Transaction) { txn.Description = "" }, wantErr: true},
		{name: "missing account", mutate: func(txn *model.Transaction) { txn.AccountID = "" }, wantErr: true},
		{name: "category without source", mutate: func(txn *model.Transaction) { txn.CategoryID = &catID }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			txn := valid
			tt.mutate(&txn)
			err := validateTransaction(&txn)
			if (err != nil) != tt.wantErr {
				t.Fatalf("validateTransaction() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrInvalidTransaction) {
				t.Errorf("error %v should wrap ErrInvalidTransaction", err)
			}
		})
	}
}

func TestNormalizeRulePattern(t *testing.T) {
	got, err := normalizeRulePattern("  Whole FOODS ")
	if err != nil || got != "whole foods" {
		t.Errorf("normalizeRulePattern() = %q, %v", got, err)
	}
	if _, err := normalizeRulePattern(" \t"); !errors.Is(err, ErrInvalidRule) {
		t.Errorf("expected ErrInvalidRule for blank pattern, got %v", err)
	}
}
