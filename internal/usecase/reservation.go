package usecase

import (
	"sort"

	"pos/internal/domain/model"
	"pos/internal/domain/pricing"
)

// 1商品ぶんの在庫の増減量
type reservation struct {
	productID int64
	qty       int64
}

// 同じ商品の数量をまとめ、商品ID順に並べる。
// 引当・戻しの順番をどのリクエストでも揃えて、行ロックの待ち合いで詰まらないようにする。
// 合計は pricing.MaxQuantity を超えられない（超えるとint64があふれる前に止める）
func groupByProduct(in []reservation) ([]reservation, error) {
	byProduct := make(map[int64]int64, len(in))
	for _, rv := range in {
		if rv.qty < 1 || rv.qty > pricing.MaxQuantity {
			return nil, &Error{Kind: KindValidation, Message: "quantity out of range", ProductID: rv.productID, Requested: rv.qty}
		}
		sum := byProduct[rv.productID] + rv.qty
		if sum > pricing.MaxQuantity {
			return nil, &Error{Kind: KindValidation, Message: "total quantity for product exceeds the per-sale limit", ProductID: rv.productID, Requested: sum}
		}
		byProduct[rv.productID] = sum
	}
	out := make([]reservation, 0, len(byProduct))
	for id, qty := range byProduct {
		out = append(out, reservation{productID: id, qty: qty})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].productID < out[j].productID })
	return out, nil
}

func reservationsOf(items []CheckoutItemInput) ([]reservation, error) {
	in := make([]reservation, 0, len(items))
	for _, it := range items {
		in = append(in, reservation{productID: it.ProductID, qty: it.Quantity})
	}
	return groupByProduct(in)
}

func restorationsOf(lines []model.TransactionLine) ([]reservation, error) {
	in := make([]reservation, 0, len(lines))
	for _, l := range lines {
		in = append(in, reservation{productID: l.ProductID, qty: l.Quantity})
	}
	return groupByProduct(in)
}
