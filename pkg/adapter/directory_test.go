package adapter_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/evoctl/evoctl/pkg/adapter"
	"github.com/m-mizutani/gt"
)

func TestDirectoryInviteCodes(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/category/amizade", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><body>
			<a href="/group/101">Grupo da Amizade</a>
			<a href="/group/102">Turma Boa</a>
			<a href="/group/101">duplicate link</a>
			<a href="/about">about us</a>
			<a href="/group/103">Sem Link</a>
		</body></html>`)
	})
	mux.HandleFunc("/group/101", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><body>
			<a href="https://chat.whatsapp.com/AbCdEfGhIjKlMnOpQrStUv">Entrar</a>
		</body></html>`)
	})
	mux.HandleFunc("/group/102", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><body>
			<a href="https://chat.whatsapp.com/ZyXwVuTsRqPoNmLkJiHgFe">Entrar</a>
		</body></html>`)
	})
	mux.HandleFunc("/group/103", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><body>no invite here</body></html>`)
	})

	server := httptest.NewServer(mux)
	defer server.Close()

	directory := adapter.NewDirectory(server.URL)
	codes, err := directory.InviteCodes(context.Background(), "amizade", 10)
	gt.NoError(t, err)

	gt.A(t, codes).Length(2)
	gt.Equal(t, codes[0], "AbCdEfGhIjKlMnOpQrStUv")
	gt.Equal(t, codes[1], "ZyXwVuTsRqPoNmLkJiHgFe")
}

func TestDirectoryInviteCodesLimit(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/category/amizade", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><body>
			<a href="/group/1">a</a>
			<a href="/group/2">b</a>
			<a href="/group/3">c</a>
		</body></html>`)
	})
	for i := 1; i <= 3; i++ {
		code := fmt.Sprintf("Group%02dAbCdEfGhIjKlMnO", i)
		mux.HandleFunc(fmt.Sprintf("/group/%d", i), func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprintf(w, `<a href="https://chat.whatsapp.com/%s">x</a>`, code)
		})
	}

	server := httptest.NewServer(mux)
	defer server.Close()

	directory := adapter.NewDirectory(server.URL)
	codes, err := directory.InviteCodes(context.Background(), "amizade", 2)
	gt.NoError(t, err)
	gt.A(t, codes).Length(2)
}

func TestDirectoryCategoryNotFound(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	defer server.Close()

	directory := adapter.NewDirectory(server.URL)
	_, err := directory.InviteCodes(context.Background(), "missing", 5)
	gt.Error(t, err)
}
