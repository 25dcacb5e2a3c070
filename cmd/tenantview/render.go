package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/jonwraymond/tenantview/resource"
)

func render(w io.Writer, s *resource.Session) error {
	p := message.NewPrinter(language.English)

	tenant, ok := s.Tenants.Selected()
	if !ok {
		return resource.ErrNoTenantSelected
	}
	p.Fprintf(w, "Tenant %s (%s), %d tenants, list %s\n\n", tenant.ID, tenant.Name, len(s.Tenants.Data()), s.Tenants.Status())

	txs := s.Transactions.Current()
	p.Fprintf(w, "Transactions page %d of %d (%d total, %s)\n",
		s.Transactions.Page(), pages(txs.Total, s.Transactions.PageSize()), txs.Total, s.Transactions.Key())
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tDATE\tSTATUS\tAMOUNT\tDESCRIPTION")
	for _, t := range txs.Data {
		p.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\n", t.ID, t.Date, t.Status, t.Amount, t.Description)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	users := s.Users.Current()
	p.Fprintf(w, "\nUsers page %d of %d (%d total, %s)\n",
		s.Users.Page(), pages(users.Total, s.Users.PageSize()), users.Total, s.Users.Key())
	tw = tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tEMAIL\tROLE\tACTIVE")
	for _, u := range users.Data {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%t\n", u.ID, u.Name, u.Email, u.Role, u.Active)
	}
	return tw.Flush()
}

func pages(total, size int) int {
	if total == 0 || size < 1 {
		return 1
	}
	return (total + size - 1) / size
}
