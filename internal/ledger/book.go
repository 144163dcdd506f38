package ledger

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
)

// Book indexes tokens by address. It is immutable after NewBook.
type Book struct {
	tokens map[common.Address]*Token
}

func NewBook(tokens ...*Token) *Book {
	b := &Book{tokens: make(map[common.Address]*Token, len(tokens))}
	for _, token := range tokens {
		b.tokens[token.Address()] = token
	}
	return b
}

// Token returns the token at address.
func (b *Book) Token(address common.Address) (*Token, error) {
	token, ok := b.tokens[address]
	if !ok {
		return nil, fmt.Errorf("unknown token %s", address.Hex())
	}
	return token, nil
}
