package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"anvil/internal/engine"
	"anvil/internal/hostmod"
	"anvil/internal/resolve"
	"anvil/internal/typeparse"
)

var parseCmd = &cobra.Command{
	Use:   "parse [flags] <text>",
	Short: "Parse a type, function or property declaration and print its structure",
	Args:  cobra.ExactArgs(1),
	RunE:  runParse,
}

func init() {
	parseCmd.Flags().String("as", "type", "what the text declares (type|function|property)")
	parseCmd.Flags().Bool("resolve", false, "resolve a type against the --modules catalog")
}

func runParse(cmd *cobra.Command, args []string) error {
	as, err := cmd.Flags().GetString("as")
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	switch strings.ToLower(as) {
	case "type":
		expr, err := typeparse.ParseType(args[0])
		if err != nil {
			return err
		}
		fmt.Fprintln(out, expr.String())
		resolveIt, err := cmd.Flags().GetBool("resolve")
		if err != nil || !resolveIt {
			return err
		}
		return printResolved(cmd, expr)
	case "function", "func":
		d, err := typeparse.ParseFunction(args[0])
		if err != nil {
			return err
		}
		printFuncDecl(out, d)
		return nil
	case "property", "prop":
		d, err := typeparse.ParseProperty(args[0])
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "type:  %s\nname:  %s\n", d.Type, d.Name)
		return nil
	default:
		return fmt.Errorf("invalid --as value %q (expected type|function|property)", as)
	}
}

func printResolved(cmd *cobra.Command, expr *resolve.TypeExpr) error {
	modules, err := cmd.Root().PersistentFlags().GetStringSlice("modules")
	if err != nil {
		return err
	}
	eng := engine.NewEngine()
	for _, name := range modules {
		mod, ok := hostmod.ByName(name)
		if !ok {
			return fmt.Errorf("unknown host module %q", name)
		}
		if err := eng.Install(mod); err != nil {
			return err
		}
	}
	ref, err := eng.Types().Resolve(expr, resolve.Context{})
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "resolved: %s\n", eng.Catalog().RefString(ref))
	return nil
}

func printFuncDecl(out io.Writer, d *typeparse.FuncDecl) {
	if d.IsConstructor() {
		fmt.Fprintln(out, "kind:     constructor")
	} else {
		fmt.Fprintf(out, "return:   %s\n", d.Return)
	}
	name := d.Name
	if len(d.Scope) > 0 {
		name = strings.Join(d.Scope, "::") + "::" + name
	}
	if len(d.TemplateParams) > 0 {
		name += "<" + strings.Join(d.TemplateParams, ", ") + ">"
	}
	fmt.Fprintf(out, "name:     %s\n", name)
	for i, p := range d.Params {
		line := p.Type.String()
		if p.Name != "" {
			line += " " + p.Name
		}
		if p.HasDefault() {
			line += " = " + p.Default
		}
		fmt.Fprintf(out, "param %d:  %s\n", i, line)
	}
	var traits []string
	for _, t := range []struct {
		on   bool
		name string
	}{{d.Const, "const"}, {d.Explicit, "explicit"}, {d.Property, "property"}, {d.Variadic, "variadic"}} {
		if t.on {
			traits = append(traits, t.name)
		}
	}
	if len(traits) > 0 {
		fmt.Fprintf(out, "traits:   %s\n", strings.Join(traits, ", "))
	}
}
