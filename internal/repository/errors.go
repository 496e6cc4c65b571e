package repository

import "errors"

var (
	ErrNotFound = errors.New("not found")
	// 一意制約違反（レシート番号・冪等キー・在庫レコードの重複）
	ErrDuplicate = errors.New("duplicate")
	// 条件付き更新が0件だった（他のリクエストが先に状態を変えた）
	ErrConflict = errors.New("conflict")
	// 在庫の増減量が1未満
	ErrInvalidQuantity = errors.New("quantity must be >= 1")
)
