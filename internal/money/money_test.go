package money

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	cases := map[string]int64{
		"100":    10000,
		"30.25":  3025,
		"0.5":    50,
		"-5.25":  -525,
		" 1.10 ": 110,
		"0":      0,
	}
	for in, want := range cases {
		m, err := Parse(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, m.Cents(), in)
	}
}

func TestParse_RechazaSubCentavo(t *testing.T) {
	_, err := Parse("0.005")
	assert.ErrorIs(t, err, ErrSubCentavo)
}

func TestParse_Invalido(t *testing.T) {
	_, err := Parse("diez")
	assert.Error(t, err)
}

func TestAritmetica(t *testing.T) {
	a := MustParse("100.00")
	b := MustParse("80.25")

	assert.Equal(t, "180.25", a.Add(b).String())
	assert.Equal(t, "19.75", a.Sub(b).String())
	assert.Equal(t, "-19.75", b.Sub(a).String())
	assert.Equal(t, "1.25", MustParse("0.25").MulInt(5).String())
	assert.Equal(t, "5.25", MustParse("-5.25").Abs().String())
	assert.True(t, MustParse("-0.01").IsNegative())
	assert.True(t, Zero.IsZero())
	assert.Equal(t, -1, b.Cmp(a))
	assert.Equal(t, 0, a.Cmp(MustParse("100")))
}

// Summing many cent amounts stays exact where float64 accumulation drifts.
func TestSum_SinDeriva(t *testing.T) {
	var total Money
	var esperado int64
	for i := 0; i < 10000; i++ {
		c := int64(i%997) + 1 // 0.01 .. 9.97
		total = total.Add(FromCents(c))
		esperado += c
	}
	assert.Equal(t, esperado, total.Cents())

	dec := decimal.Zero
	for i := 0; i < 10000; i++ {
		dec = dec.Add(decimal.New(int64(i%997)+1, -2))
	}
	assert.True(t, total.Decimal().Equal(dec))
}

func TestFormat(t *testing.T) {
	assert.Equal(t, "Q180.25", MustParse("180.25").Format("Q"))
	assert.Equal(t, "-Q5.25", MustParse("-5.25").Format("Q"))
}

func TestJSON(t *testing.T) {
	type payload struct {
		Monto Money `json:"monto"`
	}
	out, err := json.Marshal(payload{Monto: MustParse("30.25")})
	require.NoError(t, err)
	assert.JSONEq(t, `{"monto":"30.25"}`, string(out))

	var p payload
	require.NoError(t, json.Unmarshal([]byte(`{"monto":12.5}`), &p))
	assert.Equal(t, int64(1250), p.Monto.Cents())

	require.NoError(t, json.Unmarshal([]byte(`{"monto":"7.05"}`), &p))
	assert.Equal(t, int64(705), p.Monto.Cents())

	assert.Error(t, json.Unmarshal([]byte(`{"monto":"1.001"}`), &p))
}

func TestParse_FueraDeRango(t *testing.T) {
	// 2^64 cents would wrap to 0 in int64
	_, err := Parse("184467440737095516.16")
	assert.ErrorIs(t, err, ErrFueraDeRango)

	_, err = Parse("-10000000000000.01")
	assert.ErrorIs(t, err, ErrFueraDeRango)

	m, err := Parse("10000000000000.00")
	require.NoError(t, err)
	assert.Equal(t, Limite, m)
}

func TestAritmeticaAcotada(t *testing.T) {
	doscientos := MustParse("200")

	_, err := doscientos.MulIntAcotado(1 << 59)
	assert.ErrorIs(t, err, ErrFueraDeRango)

	m, err := doscientos.MulIntAcotado(3)
	require.NoError(t, err)
	assert.Equal(t, "600.00", m.String())

	_, err = Limite.AddAcotado(FromCents(1))
	assert.ErrorIs(t, err, ErrFueraDeRango)

	m, err = Limite.AddAcotado(FromCents(-1))
	require.NoError(t, err)
	assert.Equal(t, Limite-1, m)
}
