package service

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"

	"github.com/afigueroah/shucway-app-main-sub002/internal/dto"
	"github.com/afigueroah/shucway-app-main-sub002/internal/money"

	"gorm.io/datatypes"
)

// ── Arqueo ────────────────────────────────────────────────────────────────────
// ContadorDenominaciones turns a (denominación → cantidad) count into a total.
// Pure: used live while the cashier types and once more when closing.

type ContadorDenominaciones struct {
	permitidas map[money.Money]bool
}

func NewContadorDenominaciones(denominaciones []money.Money) *ContadorDenominaciones {
	permitidas := make(map[money.Money]bool, len(denominaciones))
	for _, d := range denominaciones {
		permitidas[d] = true
	}
	return &ContadorDenominaciones{permitidas: permitidas}
}

// LineaDesglose is one denomination row of a validated count.
type LineaDesglose struct {
	Denominacion money.Money
	Cantidad     int
}

func (l LineaDesglose) Subtotal() money.Money {
	return l.Denominacion.MulInt(int64(l.Cantidad))
}

// Desglose is a validated breakdown, ordered from the largest denomination.
type Desglose struct {
	lineas []LineaDesglose
	total  money.Money
}

func (d Desglose) Lineas() []LineaDesglose { return d.lineas }

// Total = Σ denominación × cantidad, in integer cents. Validar already
// checked it stays within money.Limite.
func (d Desglose) Total() money.Money { return d.total }

// JSON renders the breakdown for the audit column, keyed by "100.00"-style values.
func (d Desglose) JSON() (datatypes.JSON, error) {
	m := make(map[string]int, len(d.lineas))
	for _, l := range d.lineas {
		m[l.Denominacion.String()] = l.Cantidad
	}
	raw, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	return datatypes.JSON(raw), nil
}

// Validar checks every key against the catalogue, every count for sign and
// the resulting total against money.Limite.
// Keys are visited in sorted order so the reported error is deterministic.
func (c *ContadorDenominaciones) Validar(conteo dto.ConteoDenominaciones) (Desglose, error) {
	keys := make([]string, 0, len(conteo))
	for k := range conteo {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	porDenominacion := make(map[money.Money]int64, len(conteo))
	for _, k := range keys {
		den, err := money.Parse(k)
		if err != nil || !c.permitidas[den] {
			return Desglose{}, fmt.Errorf("%w: %q", ErrDenominacionDesconocida, k)
		}
		cantidad := conteo[k]
		if cantidad < 0 {
			return Desglose{}, fmt.Errorf("%w: %q=%d", ErrConteoNegativo, k, cantidad)
		}
		// "0.5" and "0.50" name the same coin
		acumulado := porDenominacion[den]
		if int64(cantidad) > math.MaxInt32-acumulado {
			return Desglose{}, fmt.Errorf("%w: %q=%d", ErrConteoFueraDeRango, k, cantidad)
		}
		porDenominacion[den] = acumulado + int64(cantidad)
	}

	lineas := make([]LineaDesglose, 0, len(porDenominacion))
	for den, cantidad := range porDenominacion {
		lineas = append(lineas, LineaDesglose{Denominacion: den, Cantidad: int(cantidad)})
	}
	sort.Slice(lineas, func(i, j int) bool { return lineas[i].Denominacion > lineas[j].Denominacion })

	var total money.Money
	for _, l := range lineas {
		subtotal, err := l.Denominacion.MulIntAcotado(int64(l.Cantidad))
		if err == nil {
			total, err = total.AddAcotado(subtotal)
		}
		if err != nil {
			return Desglose{}, fmt.Errorf("%w: %v", ErrConteoFueraDeRango, err)
		}
	}
	return Desglose{lineas: lineas, total: total}, nil
}

// Totalizar is the live-feedback entry point.
func (c *ContadorDenominaciones) Totalizar(req dto.TotalArqueoRequest) (*dto.TotalArqueoResponse, error) {
	desglose, err := c.Validar(req.Conteo)
	if err != nil {
		return nil, err
	}
	resp := &dto.TotalArqueoResponse{
		Lineas: make([]dto.LineaArqueoResponse, 0, len(desglose.lineas)),
		Total:  desglose.Total().Decimal(),
	}
	for _, l := range desglose.lineas {
		resp.Lineas = append(resp.Lineas, dto.LineaArqueoResponse{
			Denominacion: l.Denominacion.Decimal(),
			Cantidad:     l.Cantidad,
			Subtotal:     l.Subtotal().Decimal(),
		})
	}
	return resp, nil
}
