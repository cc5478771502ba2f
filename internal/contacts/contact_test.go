package contacts

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestID_UnmarshalJSON(t *testing.T) {
	tests := []struct {
		name string
		json string
		want ID
	}{
		{name: "string id", json: `"7c9e6679-7425-40de-944b-e07fc1f90ae7"`, want: "7c9e6679-7425-40de-944b-e07fc1f90ae7"},
		{name: "numeric id", json: `42`, want: "42"},
		{name: "null id", json: `null`, want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var id ID
			require.NoError(t, json.Unmarshal([]byte(tt.json), &id))
			assert.Equal(t, tt.want, id)
		})
	}
}

func TestContact_JSONShape(t *testing.T) {
	d := Date{Year: 1990, Month: time.May, Day: 12}
	c := Contact{
		Nome:           "Ana",
		DataNascimento: &d,
		Telefones:      []string{"11999999999"},
		Emails:         []string{},
		Endereco:       &Address{},
	}

	data, err := json.Marshal(c)
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))

	assert.NotContains(t, raw, "id", "drafts must not carry an id")
	assert.Equal(t, "1990-05-12", raw["dataNascimento"])
	assert.Equal(t, []any{}, raw["emails"])

	endereco, ok := raw["endereco"].(map[string]any)
	require.True(t, ok)
	for _, field := range []string{"estado", "cidade", "bairro", "logradouro", "numero", "cep"} {
		assert.Contains(t, endereco, field)
	}
}

func TestContact_MissingBirthDateIsNull(t *testing.T) {
	data, err := json.Marshal(Contact{Nome: "Bruno"})
	require.NoError(t, err)
	assert.Contains(t, string(data), `"dataNascimento":null`)

	var back Contact
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Nil(t, back.DataNascimento)
}

func TestDate_RejectsGarbage(t *testing.T) {
	var c Contact
	err := json.Unmarshal([]byte(`{"nome":"x","dataNascimento":"12/05/1990"}`), &c)
	assert.Error(t, err)
}

func TestCleanEntries(t *testing.T) {
	assert.Equal(t, []string{"a", "b"}, CleanEntries([]string{" a ", "", "   ", "b"}))
	assert.NotNil(t, CleanEntries(nil))
	assert.Empty(t, CleanEntries([]string{""}))
}

func TestClone_IsDeep(t *testing.T) {
	d := Date{Year: 2000, Month: time.January, Day: 1}
	orig := Contact{ID: "1", Telefones: []string{"1"}, DataNascimento: &d, Endereco: &Address{Cidade: "Rio"}}

	cp := orig.Clone()
	cp.Telefones[0] = "2"
	cp.DataNascimento.Year = 1999
	cp.Endereco.Cidade = "Niterói"

	assert.Equal(t, "1", orig.Telefones[0])
	assert.Equal(t, 2000, orig.DataNascimento.Year)
	assert.Equal(t, "Rio", orig.Endereco.Cidade)
}

func TestClone_KeepsEmptyListsEmpty(t *testing.T) {
	cp := Contact{Nome: "Maria", Telefones: []string{}, Emails: []string{}}.Clone()
	require.NotNil(t, cp.Telefones)
	require.NotNil(t, cp.Emails)

	data, err := json.Marshal(cp)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"telefones":[]`)
	assert.Contains(t, string(data), `"emails":[]`)

	assert.Nil(t, Contact{}.Clone().Telefones)
}

func TestAddress_Format(t *testing.T) {
	a := &Address{Logradouro: "Rua A", Numero: "10", Cidade: "Rio de Janeiro", Estado: "RJ", CEP: "20000-000"}
	assert.Equal(t, "Rua A, 10, Rio de Janeiro, RJ, CEP: 20000-000", a.Format())
	assert.True(t, a.HasLocation())

	var none *Address
	assert.False(t, none.HasLocation())
	assert.False(t, (&Address{Numero: "5"}).HasLocation())
}

func TestDate_Display(t *testing.T) {
	d, err := ParseDate("1990-05-12")
	require.NoError(t, err)
	assert.Equal(t, "12/05/1990", d.Display())
	assert.Equal(t, "1990-05-12", d.String())
}

func TestMatchesName(t *testing.T) {
	assert.True(t, MatchesName("João da Silva", "joão"))
	assert.True(t, MatchesName("JOÃO", "ão"))
	assert.True(t, MatchesName("Ana Paula", "a p"))
	assert.False(t, MatchesName("Ana", " an"))
	assert.False(t, MatchesName("Ana", "bruno"))
}
