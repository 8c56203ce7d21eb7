package usecase

import "errors"

var (
	//空のカートでチェックアウト
	ErrEmptyCart = errors.New("cart is empty")
	//数量は1以上
	ErrInvalidQuantity = errors.New("invalid quantity")
	//IDなし・価格がマイナス
	ErrInvalidMaterial = errors.New("invalid material")
	//在庫なし
	ErrMaterialUnavailable = errors.New("material unavailable")
	//住所・支払い方法・配送料が不正
	ErrInvalidCheckout = errors.New("invalid checkout")

	ErrOrderNotFound = errors.New("order not found")
	//deliveredからは進まない
	ErrAlreadyTerminal = errors.New("order already delivered")
	//後戻り・未知のステータス
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrDuplicateOrder    = errors.New("duplicate order")
	//セッション終了後の操作
	ErrTrackerClosed = errors.New("order tracker closed")

	ErrSessionNotFound = errors.New("session not found")
)
